package actions

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"strings"
)

// System performs OS-level automation on a Linux desktop through the
// standard command-line tooling (xdotool, wmctrl, pactl, brightnessctl).
// No AI logic here, just direct execution.
type System struct{}

func NewSystem() *System {
	return &System{}
}

// launchAliases maps spoken app names to desktop launcher or binary names.
var launchAliases = map[string]string{
	"chrome":     "google-chrome",
	"msedge":     "microsoft-edge",
	"notepad":    "gedit",
	"calculator": "gnome-calculator",
	"explorer":   "nautilus",
	"taskmgr":    "gnome-system-monitor",
	"cmd":        "gnome-terminal",
	"powershell": "gnome-terminal",
}

func (s *System) OpenApp(ctx context.Context, name string) (bool, error) {
	target := name
	if alias, ok := launchAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		target = alias
	}
	log.Printf("System: opening %s (%s)", name, target)

	// gtk-launch resolves .desktop entries; fall back to a direct exec.
	if err := exec.CommandContext(ctx, "gtk-launch", target).Start(); err == nil {
		return true, nil
	}
	cmd := exec.CommandContext(ctx, target)
	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return false, fmt.Errorf("no launcher found for %s", name)
		}
		log.Printf("System: launch failed for %s: %v", target, err)
		return false, nil
	}
	return true, nil
}

func (s *System) CloseApp(ctx context.Context, name string) (bool, error) {
	target := name
	if alias, ok := launchAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		target = alias
	}
	log.Printf("System: closing %s", target)
	return s.run(ctx, "pkill", "-f", target)
}

func (s *System) SwitchWindow(ctx context.Context, title string) (bool, error) {
	log.Printf("System: switching to window %q", title)
	return s.run(ctx, "wmctrl", "-a", title)
}

func (s *System) TypeText(ctx context.Context, text string) (bool, error) {
	if text == "" {
		return false, nil
	}
	log.Printf("System: typing %d characters", len(text))
	return s.run(ctx, "xdotool", "type", "--delay", "12", text)
}

func (s *System) MouseClick(ctx context.Context) (bool, error) {
	return s.run(ctx, "xdotool", "click", "1")
}

func (s *System) ControlVolume(ctx context.Context, direction string, amount int) (bool, error) {
	log.Printf("System: volume %s x%d", direction, amount)
	switch direction {
	case "up":
		return s.run(ctx, "pactl", "set-sink-volume", "@DEFAULT_SINK@", fmt.Sprintf("+%d%%", 5*amount))
	case "down":
		return s.run(ctx, "pactl", "set-sink-volume", "@DEFAULT_SINK@", fmt.Sprintf("-%d%%", 5*amount))
	case "mute":
		return s.run(ctx, "pactl", "set-sink-mute", "@DEFAULT_SINK@", "toggle")
	default:
		return false, nil
	}
}

func (s *System) ControlBrightness(ctx context.Context, direction string, amount int) (bool, error) {
	log.Printf("System: brightness %s x%d", direction, amount)
	switch direction {
	case "up":
		return s.run(ctx, "brightnessctl", "set", fmt.Sprintf("+%d%%", 10*amount))
	case "down":
		return s.run(ctx, "brightnessctl", "set", fmt.Sprintf("%d%%-", 10*amount))
	default:
		return false, nil
	}
}

func (s *System) Shutdown(ctx context.Context) (bool, error) {
	log.Printf("System: shutdown requested")
	return s.run(ctx, "systemctl", "poweroff")
}

// run executes a tool and maps its outcome onto the handler contract: a
// non-zero exit is a failed step, a missing binary is an error.
func (s *System) run(ctx context.Context, name string, args ...string) (bool, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			log.Printf("System: %s failed: %s", name, strings.TrimSpace(string(output)))
			return false, nil
		}
		if errors.Is(err, exec.ErrNotFound) {
			return false, fmt.Errorf("%s is not installed", name)
		}
		return false, fmt.Errorf("run %s: %w", name, err)
	}
	return true, nil
}
