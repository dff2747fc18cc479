package errors

import (
	"errors"
	"testing"
)

func TestDomainError(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		err := New(CodeRootNotFound, "source root missing")
		if err.Error() != "[ROOT_NOT_FOUND] source root missing" {
			t.Errorf("expected [ROOT_NOT_FOUND] source root missing, got %s", err.Error())
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		original := errors.New("original error")
		err := Wrap(original, CodeInternal, "internal failure")
		expected := "[INTERNAL_ERROR] internal failure: original error"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
	})

	t.Run("IsCode", func(t *testing.T) {
		err := New(CodeValidationError, "invalid input")
		if !IsCode(err, CodeValidationError) {
			t.Error("expected IsCode to return true for CodeValidationError")
		}
		if IsCode(err, CodeNotFound) {
			t.Error("expected IsCode to return false for CodeNotFound")
		}
	})

	t.Run("IsCodeWithWrapped", func(t *testing.T) {
		original := errors.New("original error")
		err := Wrap(original, CodeInternal, "internal failure")
		if !IsCode(err, CodeInternal) {
			t.Error("expected IsCode to return true for wrapped CodeInternal")
		}
	})

	t.Run("AddContext", func(t *testing.T) {
		err := New(CodeParseError, "bad syntax")
		err = AddContext(err, CtxPath, "pkg/mod.py")
		var de *DomainError
		if !errors.As(err, &de) {
			t.Fatal("expected DomainError")
		}
		if de.Context[CtxPath] != "pkg/mod.py" {
			t.Errorf("expected context path, got %v", de.Context)
		}
	})
}

func TestFileErrorString(t *testing.T) {
	fe := FileError{Path: "src/a.py", Line: 12, Code: CodeParseError, Message: "syntax error"}
	if fe.String() != "src/a.py:12: [PARSE_ERROR] syntax error" {
		t.Errorf("unexpected string: %s", fe.String())
	}

	fe = FileError{Code: CodeAmbiguous, Message: "pkg defined in two roots"}
	if fe.String() != "[NAMESPACE_AMBIGUITY] pkg defined in two roots" {
		t.Errorf("unexpected string: %s", fe.String())
	}
}
