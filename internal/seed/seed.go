package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/saxenasajal03/ConnectX/internal/store"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Fixture is a set of users and relationships to load into a store.
type Fixture struct {
	Users    []store.User `yaml:"users"`
	Requests []Request    `yaml:"requests"`
}

// Request is a friend request between two fixture users. Accepted requests
// are accepted by the recipient after creation.
type Request struct {
	From     string `yaml:"from"`
	To       string `yaml:"to"`
	Accepted bool   `yaml:"accepted"`
}

// Result counts what Apply changed.
type Result struct {
	Users    int
	Created  int
	Accepted int
}

// Load reads a YAML fixture from path.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML fixture. Unknown fields are rejected and an empty
// document yields an empty fixture.
func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	return &f, nil
}

// Apply writes the fixture through the store. Users are upserted and requests
// go through the same create and accept paths as the API, so applying a
// fixture twice changes nothing.
func Apply(ctx context.Context, st store.Store, f *Fixture, logger *zap.Logger) (Result, error) {
	var res Result
	for i := range f.Users {
		u := f.Users[i]
		if err := st.UpsertUser(ctx, &u); err != nil {
			return res, fmt.Errorf("user %q: %w", u.ID, err)
		}
		res.Users++
	}

	for _, r := range f.Requests {
		if r.From == r.To {
			return res, fmt.Errorf("request %s -> %s: sender and recipient are the same user", r.From, r.To)
		}
		req, created, err := st.CreateRequestIfAbsent(ctx, r.From, r.To)
		if err != nil {
			return res, fmt.Errorf("request %s -> %s: %w", r.From, r.To, err)
		}
		if created {
			res.Created++
		}
		if !r.Accepted {
			continue
		}
		// The stored request may point the other way if the pair already existed.
		_, transitioned, err := st.AcceptRequest(ctx, req.ID, req.RecipientID)
		if err != nil {
			return res, fmt.Errorf("accept %s: %w", req.ID, err)
		}
		if transitioned {
			res.Accepted++
		}
	}

	logger.Info("Fixture applied",
		zap.Int("users", res.Users),
		zap.Int("requests_created", res.Created),
		zap.Int("requests_accepted", res.Accepted),
	)
	return res, nil
}
