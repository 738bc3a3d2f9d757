package icons

const (
	IconPostgres = "\ue76e"
	IconMySQL    = "\ue704"
	IconSQLite   = "\U000f01bc"

	IconSuccess = "✓"
	IconError   = "⚠"
	IconSelect  = "▸"
)

// Database returns the Nerd Font glyph for a driver type
func Database(driverType string) string {
	switch driverType {
	case "postgres":
		return IconPostgres
	case "mysql":
		return IconMySQL
	default:
		return IconSQLite
	}
}
