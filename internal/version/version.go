package version

const (
	AppName    = "KingsBot"
	AppVersion = "1.3.0"
)
