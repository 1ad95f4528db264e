// Package ifc implements the core's interface discipline: every object
// exposed across a plugin or IPC boundary is reached through a
// reference-counted Unknown that can be queried for other interfaces by
// id, and can hand out weak references that detect destruction.
package ifc

import (
	"crypto/sha1"
	"fmt"

	"github.com/google/uuid"
)

// Iid identifies an interface the way a COM IID does: a stable 128-bit
// value independent of the Go type name implementing it, so a plugin
// built against one version of an interface can still be recognized by
// a host built against another.
type Iid uuid.UUID

// NamedIid derives a stable Iid from a human-readable interface name by
// hashing it into the UUID namespace, so interface authors do not have
// to hand-mint a UUID literal for every interface.
func NamedIid(name string) Iid {
	h := sha1.Sum([]byte("dashost.iid:" + name))
	var u uuid.UUID
	copy(u[:], h[:16])
	u[6] = (u[6] & 0x0f) | 0x50 // version 5-shaped, not a real SHA1 UUID
	u[8] = (u[8] & 0x3f) | 0x80
	return Iid(u)
}

// ParseIid parses the canonical lowercase dashed form of an Iid, the
// same form String returns. Any deviation — uppercase hex, missing
// dashes, a braced GUID literal — is rejected rather than normalized,
// since a host and a plugin that disagree on case would otherwise
// silently compare equal ids as distinct.
func ParseIid(s string) (Iid, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return Iid{}, fmt.Errorf("ifc: invalid iid %q: %w", s, err)
	}
	if u.String() != s {
		return Iid{}, fmt.Errorf("ifc: invalid iid %q: not canonical form", s)
	}
	return Iid(u), nil
}

// String renders the canonical dashed hex form.
func (id Iid) String() string { return uuid.UUID(id).String() }

// IsZero reports whether id is the nil interface id.
func (id Iid) IsZero() bool { return id == Iid{} }

// Well-known interface ids. Concrete component packages mint their own
// via NamedIid at init time; these cover the handful queried generically
// by the bridge and the IPC command layer.
var (
	IidUnknown  = NamedIid("Das.Core.IUnknown")
	IidWeakRef  = NamedIid("Das.Core.IWeakRef")
	IidWeakable = NamedIid("Das.Core.IWeakable")
)
