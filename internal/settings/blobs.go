package settings

// The two process-wide settings blobs: "UI extra
// settings", a fixed file at the process working directory, and
// "global settings", backed by whichever file the host chose at
// construction. Both get the same single-writer atomicity as a
// per-plugin settings file — they are plain JSONFiles with a fixed
// well-known path, not a distinct type.

// UIExtraSettingsPath is the conventional path for the UI-side opaque
// blob, resolved relative to the process's working directory.
const UIExtraSettingsPath = "UiExtraSettings.json"

// OpenUIExtraSettings opens the UI extras blob at its conventional path.
func OpenUIExtraSettings() (*JSONFile, error) {
	return Open(UIExtraSettingsPath)
}

// OpenGlobalSettings opens the global settings blob at the given path,
// chosen by the host at construction time (e.g. from configuration).
func OpenGlobalSettings(path string) (*JSONFile, error) {
	return Open(path)
}
