package browser

import (
	"testing"

	"github.com/nalgeon/be"
)

func TestOpenURLRejectsEmpty(t *testing.T) {
	be.True(t, OpenURL("") != nil)
	be.True(t, OpenURL("   ") != nil)
}

func TestOpenURLRejectsNonHTTP(t *testing.T) {
	be.True(t, OpenURL("file:///etc/passwd") != nil)
	be.True(t, OpenURL("mailto:x@y") != nil)
	be.True(t, OpenURL("javascript:alert(1)") != nil)
}
