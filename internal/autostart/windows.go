package autostart

const taskName = "FolderSync"

// WindowsAutoStarter registers a scheduled task that runs at logon.
type WindowsAutoStarter struct {
	run Runner
}

func (w *WindowsAutoStarter) Install(execPath string, args []string) error {
	cmd := []string{"schtasks", "/create",
		"/TN", taskName,
		"/TR", commandLine(windowsQuote, execPath, args),
		"/SC", "ONLOGON",
		"/F"}

	if out, err := w.run(cmd[0], cmd[1:]...); err != nil {
		return &CommandError{Args: cmd, Output: out, Err: err}
	}

	return nil
}

func (w *WindowsAutoStarter) Uninstall() error {
	cmd := []string{"schtasks", "/DELETE", "/TN", taskName, "/F"}
	if out, err := w.run(cmd[0], cmd[1:]...); err != nil {
		return &CommandError{Args: cmd, Output: out, Err: err}
	}

	return nil
}

func (w *WindowsAutoStarter) IsInstalled() (bool, error) {
	if _, err := w.run("schtasks", "/Query", "/TN", taskName); err != nil {
		return false, nil
	}

	return true, nil
}
