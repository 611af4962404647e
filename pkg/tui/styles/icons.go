package styles

const (
	IconHealthy  = "●"
	IconStarting = "◐"
	IconFailed   = "✗"
	IconStopped  = "■"
	IconUnknown  = "○"
)

func HealthIcon(status string) string {
	switch status {
	case "healthy":
		return IconHealthy
	case "starting":
		return IconStarting
	case "unhealthy":
		return IconFailed
	case "stopped":
		return IconStopped
	default:
		return IconUnknown
	}
}
