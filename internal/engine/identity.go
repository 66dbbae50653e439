package engine

// Identity holds the local participant's id and the session host. The host is the
// first participant ever observed joining and never changes afterwards.
type Identity struct {
	self    string
	host    string
	hostSet bool
	joined  int
}

func NewIdentity(selfID string) *Identity {
	return &Identity{self: selfID}
}

func (i *Identity) Self() string { return i.self }

func (i *Identity) Host() (string, bool) { return i.host, i.hostSet }

// Observe records a join notification and reports whether it elected the host.
func (i *Identity) Observe(participantID string) bool {
	i.joined++
	if i.hostSet {
		return false
	}
	i.host = participantID
	i.hostSet = true
	return true
}

// IsHost is false while no host is known.
func (i *Identity) IsHost(id string) bool {
	return i.hostSet && id == i.host
}

func (i *Identity) Joined() int { return i.joined }
