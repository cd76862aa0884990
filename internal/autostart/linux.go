package autostart

import (
	"errors"
	"fmt"
	"path/filepath"
	"text/template"

	"github.com/spf13/afero"
)

const serviceTemplate = `[Unit]
Description=foldersync folder mirror

[Service]
ExecStart={{.CommandLine}}
Restart=on-failure
RestartSec=5

[Install]
WantedBy=default.target
`

var serviceTmpl = template.Must(template.New("service").Parse(serviceTemplate))

// LinuxAutoStarter installs a systemd user unit.
type LinuxAutoStarter struct {
	fs  afero.Fs
	dir string
	run Runner
}

func NewLinux(fs afero.Fs, dir string, run Runner) *LinuxAutoStarter {
	return &LinuxAutoStarter{fs: fs, dir: dir, run: run}
}

func (l *LinuxAutoStarter) servicePath() (string, error) {
	if l.dir == "" {
		return "", errors.New("cannot locate the systemd user directory")
	}

	return filepath.Join(l.dir, serviceName+".service"), nil
}

func (l *LinuxAutoStarter) Install(execPath string, args []string) error {
	path, err := l.servicePath()
	if err != nil {
		return err
	}

	if err := l.fs.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", l.dir, err)
	}

	f, err := l.fs.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create service file: %w", err)
	}

	err = serviceTmpl.Execute(f, map[string]string{"CommandLine": commandLine(systemdQuote, execPath, args)})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write service file: %w", err)
	}

	cmds := [][]string{
		{"systemctl", "--user", "daemon-reload"},
		{"systemctl", "--user", "enable", serviceName + ".service"},
		{"systemctl", "--user", "restart", serviceName + ".service"},
	}

	for _, args := range cmds {
		if out, err := l.run(args[0], args[1:]...); err != nil {
			return &CommandError{Args: args, Output: out, Err: err}
		}
	}

	return nil
}

func (l *LinuxAutoStarter) Uninstall() error {
	cmds := [][]string{
		{"systemctl", "--user", "stop", serviceName + ".service"},
		{"systemctl", "--user", "disable", serviceName + ".service"},
	}

	for _, args := range cmds {
		_, _ = l.run(args[0], args[1:]...)
	}

	path, err := l.servicePath()
	if err != nil {
		return err
	}

	if err := l.fs.Remove(path); err != nil {
		return fmt.Errorf("failed to remove service file: %w", err)
	}

	_, _ = l.run("systemctl", "--user", "daemon-reload")
	return nil
}

func (l *LinuxAutoStarter) IsInstalled() (bool, error) {
	path, err := l.servicePath()
	if err != nil {
		return false, err
	}

	return afero.Exists(l.fs, path)
}
