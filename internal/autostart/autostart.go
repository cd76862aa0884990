package autostart

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/afero"
)

const serviceName = "foldersync"

// AutoStarter registers foldersync to start at login with a fixed set of
// command line arguments.
type AutoStarter interface {
	Install(execPath string, args []string) error
	Uninstall() error
	IsInstalled() (bool, error)
}

// Runner runs an external command and returns its combined output.
type Runner func(name string, args ...string) ([]byte, error)

func execRunner(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).CombinedOutput()
}

func New() AutoStarter {
	switch runtime.GOOS {
	case "windows":
		return &WindowsAutoStarter{run: execRunner}
	case "linux":
		dir := ""
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".config", "systemd", "user")
		}
		return NewLinux(afero.NewOsFs(), dir, execRunner)
	default:
		return &UnsupportedAutoStarter{}
	}
}

type UnsupportedAutoStarter struct{}

func (u *UnsupportedAutoStarter) Install(_ string, _ []string) error {
	return ErrUnsupported
}

func (u *UnsupportedAutoStarter) Uninstall() error {
	return ErrUnsupported
}

func (u *UnsupportedAutoStarter) IsInstalled() (bool, error) {
	return false, nil
}

// systemdQuote wraps s in double quotes, escaping backslashes and quotes.
func systemdQuote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}

// windowsQuote wraps s in double quotes. Windows paths cannot contain one.
func windowsQuote(s string) string {
	return `"` + s + `"`
}

func commandLine(quote func(string) string, execPath string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, quote(execPath))
	for _, a := range args {
		parts = append(parts, quote(a))
	}

	return strings.Join(parts, " ")
}
