package vivint

// User is a person provisioned on a site: pins, lock assignments, admin
// and registration flags.
type User struct {
	Entity
	site *Site
}

// NewUser wraps a site user payload.
func NewUser(data map[string]any, site *Site) *User {
	return &User{Entity: newEntity(data, site.logger), site: site}
}

// Name returns the user's display name.
func (u *User) Name() string {
	name, _ := attrString(u.data, KeyName)
	return name
}

// IsAdmin reports whether the user administers the site.
func (u *User) IsAdmin() bool {
	ad, _ := attrBool(u.data, KeyAdmin)
	return ad
}

// IsRegistered reports whether the user has completed app registration.
func (u *User) IsRegistered() bool {
	reg, _ := attrBool(u.data, AttrUserRegistered)
	return reg
}

// HasLockPin reports whether the user has a door lock pin.
func (u *User) HasLockPin() bool {
	v, _ := attrBool(u.data, AttrUserHasLockPin)
	return v
}

// HasPanelPin reports whether the user has a panel pin.
func (u *User) HasPanelPin() bool {
	v, _ := attrBool(u.data, AttrUserHasPanelPin)
	return v
}

// HasPins reports whether the user has any pin at all.
func (u *User) HasPins() bool {
	v, _ := attrBool(u.data, AttrUserHasPins)
	return v
}

// HasRemoteAccess reports whether the user may operate the site remotely.
func (u *User) HasRemoteAccess() bool {
	v, _ := attrBool(u.data, AttrUserRemoteAccess)
	return v
}

// LockIDs returns the ids of the locks the user's pin is programmed on.
func (u *User) LockIDs() []int64 {
	return attrInt64List(u.data, AttrUserLockIDs)
}

// HandlePushUpdate applies a push message to the user. A message carrying
// the add-lock sentinel appends that lock id to the user's lock list
// instead of replacing it.
func (u *User) HandlePushUpdate(data map[string]any) {
	if added, ok := data[AttrUserAddLock]; ok {
		merged := make([]any, 0, len(u.LockIDs())+1)
		for _, id := range u.LockIDs() {
			merged = append(merged, id)
		}
		merged = append(merged, added)
		data[AttrUserLockIDs] = merged
		delete(data, AttrUserAddLock)
	}
	u.UpdateData(data, false)
}
