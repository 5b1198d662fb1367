package docstore

import (
	"context"
	"encoding/json"
	"fmt"
)

// Snapshot is one live state of a document as seen by a subscriber. Data is
// nil when the document has been deleted.
type Snapshot struct {
	Collection string         `json:"collection"`
	ID         string         `json:"id"`
	Data       map[string]any `json:"data"`
}

func channelFor(collection, docID string) string {
	return fmt.Sprintf("doc:%s/%s", collection, docID)
}

// publish pushes the fresh document state to every live subscriber. Writers
// never fail because publication failed.
func (s *Store) publish(ctx context.Context, collection, docID string, raw []byte) {
	if s.pub == nil {
		return
	}

	var data map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			s.log.Warn().Err(err).Str("doc", collection+"/"+docID).Msg("snapshot decode failed")
			return
		}
	}

	msg, err := json.Marshal(Snapshot{Collection: collection, ID: docID, Data: data})
	if err != nil {
		return
	}
	if err := s.pub.Publish(ctx, channelFor(collection, docID), msg).Err(); err != nil {
		s.log.Warn().Err(err).Str("doc", collection+"/"+docID).Msg("snapshot publish failed")
	}
}

// Subscribe streams document snapshots until ctx is cancelled. The current
// document state is delivered as the first snapshot, so a new viewer renders
// an idle page immediately; after that, every write through this store (any
// writer, including the upload pipeline) produces a snapshot.
func (s *Store) Subscribe(ctx context.Context, collection, docID string) (<-chan Snapshot, error) {
	if s.pub == nil {
		return nil, fmt.Errorf("subscriptions disabled: no redis client")
	}

	sub := s.pub.Subscribe(ctx, channelFor(collection, docID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe %s/%s: %w", collection, docID, err)
	}

	// Read after the channel is established so no write can land between the
	// initial snapshot and the first pub/sub message.
	first := s.currentSnapshot(ctx, collection, docID)

	out := make(chan Snapshot)
	go func() {
		defer close(out)
		defer sub.Close()

		select {
		case out <- first:
		case <-ctx.Done():
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				var snap Snapshot
				if err := json.Unmarshal([]byte(msg.Payload), &snap); err != nil {
					s.log.Warn().Err(err).Msg("bad snapshot payload")
					continue
				}
				select {
				case out <- snap:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// currentSnapshot reads the document's present state for a fresh subscriber.
// A document that does not exist yet yields a snapshot with nil data.
func (s *Store) currentSnapshot(ctx context.Context, collection, docID string) Snapshot {
	snap := Snapshot{Collection: collection, ID: docID}

	doc, err := s.Get(ctx, collection, docID)
	if err != nil {
		if err != ErrNotFound {
			s.log.Warn().Err(err).Str("doc", collection+"/"+docID).Msg("initial snapshot read failed")
		}
		return snap
	}

	snap.Data = doc.Data
	return snap
}
