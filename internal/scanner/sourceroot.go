package scanner

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// pyprojectPackages mirrors the slice of pyproject.toml we care about:
//
//	[tool.setuptools.packages.find]
//	where = ["src"]
type pyprojectPackages struct {
	Tool struct {
		Setuptools struct {
			Packages struct {
				Find struct {
					Where []string `toml:"where"`
				} `toml:"find"`
			} `toml:"packages"`
		} `toml:"setuptools"`
	} `toml:"tool"`
}

// DetectSourceRoots guesses where importable code lives when no roots are
// configured. Probe order: pyproject.toml setuptools "where" entries, then
// the conventional src/ and lib/python/ layouts, then the project root
// itself.
func DetectSourceRoots(projectRoot string) []string {
	absProject, err := filepath.Abs(projectRoot)
	if err != nil {
		return []string{projectRoot}
	}

	if roots := rootsFromPyproject(absProject); len(roots) > 0 {
		return roots
	}

	for _, candidate := range []string{"src", filepath.Join("lib", "python")} {
		dir := filepath.Join(absProject, candidate)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return []string{dir}
		}
	}

	return []string{absProject}
}

func rootsFromPyproject(projectRoot string) []string {
	data, err := os.ReadFile(filepath.Join(projectRoot, "pyproject.toml"))
	if err != nil {
		return nil
	}

	var pp pyprojectPackages
	if _, err := toml.Decode(string(data), &pp); err != nil {
		return nil
	}

	var roots []string
	for _, where := range pp.Tool.Setuptools.Packages.Find.Where {
		dir := filepath.Join(projectRoot, filepath.FromSlash(where))
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			roots = append(roots, dir)
		}
	}
	return roots
}
