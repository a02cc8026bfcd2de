// Package codec encodes sessions for byte-oriented stores.
package codec

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/funil/pkg/domain"
)

// Codec turns a Session into stored bytes and back.
type Codec interface {
	Marshal(*domain.Session) ([]byte, error)
	Unmarshal([]byte) (*domain.Session, error)
}

// JSON is the default codec.
type JSON struct{}

func (JSON) Marshal(s *domain.Session) ([]byte, error) {
	return json.Marshal(s)
}

func (JSON) Unmarshal(data []byte) (*domain.Session, error) {
	var s domain.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &s, nil
}
