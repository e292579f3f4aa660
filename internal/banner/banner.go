package banner

import (
	"wavebench/internal/styles"

	"github.com/charmbracelet/lipgloss"
)

func GetString() string {
	renderer := lipgloss.DefaultRenderer()

	style := renderer.NewStyle().
		Foreground(styles.ColorBanner).
		Bold(true)

	ascii := `
 _ _ _ ___ _ _ ___ ___ ___ ___ ___ _ _
| | | | .'| | | -_| . | -_|   |  _|   |
|_____|__,|\_/|___|___|___|_|_|___|_|_|`

	return "\n" + style.Render(ascii) + "\n"
}
