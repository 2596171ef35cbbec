package store

import (
	"context"
	"fmt"
	"strings"
)

// Open selects a backend from dbURL's scheme: mongodb:// or mongodb+srv://
// opens a MongoStore against database "soundmark"; anything else is treated
// as a sqlite file path.
func Open(ctx context.Context, dbURL string) (Store, error) {
	if strings.HasPrefix(dbURL, "mongodb://") || strings.HasPrefix(dbURL, "mongodb+srv://") {
		s, err := OpenMongo(ctx, dbURL, "soundmark")
		if err != nil {
			return nil, fmt.Errorf("opening mongo store: %w", err)
		}
		return s, nil
	}

	s, err := OpenSQLite(dbURL)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite store: %w", err)
	}
	return s, nil
}
