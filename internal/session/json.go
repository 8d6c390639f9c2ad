package session

import (
	"encoding/json"
	"fmt"

	"github.com/workergo/portal/internal/identity"
)

type persisted struct {
	Version int    `json:"v"`
	Email   string `json:"email"`
	Role    string `json:"role"`
}

func (p persisted) identity() (identity.Identity, error) {
	if p.Version != SchemaVersion {
		return identity.Identity{}, fmt.Errorf("%w: schema version %d", ErrMalformed, p.Version)
	}

	role, err := identity.RoleFromName(p.Role)
	if err != nil {
		return identity.Identity{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	id := identity.Identity{Email: p.Email, Role: role}
	if err := id.Validate(); err != nil {
		return identity.Identity{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return id, nil
}

// JSONCodec stores {"v":1,"email":...,"role":...}. It is unsigned, so only
// use it with server-side storage.
type JSONCodec struct{}

func (JSONCodec) Encode(id identity.Identity) (string, error) {
	if err := id.Validate(); err != nil {
		return "", err
	}

	buf, err := json.Marshal(persisted{
		Version: SchemaVersion,
		Email:   id.Email,
		Role:    id.Role.String(),
	})
	if err != nil {
		return "", err
	}

	return string(buf), nil
}

func (JSONCodec) Decode(raw string) (identity.Identity, error) {
	var p persisted
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return identity.Identity{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return p.identity()
}
