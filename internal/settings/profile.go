package settings

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dashost/dashost/internal/result"
)

// Profile is an on-disk directory holding profile.json (the
// user-visible settings tree) and a schedulerState blob (the
// scheduler's persisted snapshot).
type Profile struct {
	dir            string
	id             string
	profileFile    *JSONFile
	schedulerState *JSONFile
}

// LoadProfile opens (or initializes) the profile rooted at dir. id is
// the profile's stable identifier, ordinarily the directory's base
// name.
func LoadProfile(dir string) (*Profile, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("settings: create profile dir %s: %w", dir, err)
	}
	profileFile, err := Open(filepath.Join(dir, "profile.json"))
	if err != nil {
		return nil, err
	}
	state, err := Open(filepath.Join(dir, "schedulerState"))
	if err != nil {
		return nil, err
	}
	return &Profile{
		dir:            dir,
		id:             filepath.Base(dir),
		profileFile:    profileFile,
		schedulerState: state,
	}, nil
}

// ID returns the profile's stable identifier.
func (p *Profile) ID() string { return p.id }

// Name returns the profile's display name, read from profile.json's
// "name" key, falling back to the id when absent.
func (p *Profile) Name() string {
	v, code := p.profileFile.GetKey("name")
	if code.Failed() {
		return p.id
	}
	name, code := v.String()
	if code.Failed() {
		return p.id
	}
	return name
}

// GetJsonSettingProperty returns the named settings object: "profile"
// or "schedulerState". Any other name returns result.ErrInvalidArgument.
func (p *Profile) GetJsonSettingProperty(name string) (*JSONFile, result.Code) {
	switch name {
	case "profile":
		return p.profileFile, result.OK
	case "schedulerState":
		return p.schedulerState, result.OK
	default:
		return nil, result.ErrInvalidArgument
	}
}

// EnumerateProfiles lists the profile directories under root, each
// identified by its directory name.
func EnumerateProfiles(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	return ids, nil
}
