package core

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// Getwd walks up from the working directory until it finds the project root (the one holding go.mod).
// go test runs from the package directory, so relative paths cannot be trusted.
func Getwd() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	currDir := wd
	for {
		if fi, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil && !fi.IsDir() {
			return currDir, nil
		}
		newDir := filepath.Dir(currDir)
		if newDir == string(os.PathSeparator) || newDir == currDir {
			return wd, errors.New("project root not found")
		}
		currDir = newDir
	}
}

// StringIn reports whether s is one of vals.
func StringIn(s string, vals ...string) bool {
	for _, v := range vals {
		if s == v {
			return true
		}
	}
	return false
}

// IsProvided is vala.IsNotNil for interface arguments: values that cannot be nil, such as
// structs, count as provided instead of panicking.
func IsProvided(obtained interface{}, paramName string) vala.Checker {
	return func() (bool, string) {
		msg := "Parameter was nil: " + paramName
		if obtained == nil {
			return false, msg
		}
		switch v := reflect.ValueOf(obtained); v.Kind() {
		case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Ptr, reflect.Slice:
			return !v.IsNil(), msg
		}
		return true, msg
	}
}
