package store

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/kaseeder/kaseeder/internal/peeraddr"
)

// formatVersion is bumped whenever the on-disk record shape changes.
// Load rejects any file whose format_version it does not recognize by
// quarantining it, the same as a corrupt file.
const formatVersion = 1

// persistedRecord is the JSON wire shape for one Record. Field names are
// stable API, independent of the in-memory Record's field names.
type persistedRecord struct {
	IP                   string `json:"ip"`
	Port                 uint16 `json:"port"`
	SubnetworkID         string `json:"subnetwork_id"`
	ProtocolVersion      uint32 `json:"protocol_version"`
	UserAgent            string `json:"user_agent"`
	FirstSeen            int64  `json:"first_seen"`
	LastAttempt          int64  `json:"last_attempt,omitempty"`
	LastSuccess          int64  `json:"last_success,omitempty"`
	AttemptsSinceSuccess uint32 `json:"attempts_since_success"`
	IsKnownPeer          bool   `json:"is_known_peer"`
	EverProbed           bool   `json:"ever_probed"`
}

type persistedFile struct {
	FormatVersion int                        `json:"format_version"`
	Records       map[string]persistedRecord `json:"records"`
}

func toUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func fromUnix(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

// Persist writes the current record set to s.peersFile via a temp file,
// fsync, and atomic rename, per spec.md §4.1's durability requirement. A
// no-op when peersFile is "".
func (s *Store) Persist() error {
	if s.peersFile == "" {
		return nil
	}

	out := persistedFile{
		FormatVersion: formatVersion,
		Records:       make(map[string]persistedRecord),
	}
	for _, sh := range s.shards {
		sh.mu.RLock()
		for key, rec := range sh.records {
			out.Records[key] = persistedRecord{
				IP:                   rec.Address.IP.String(),
				Port:                 rec.Address.Port,
				SubnetworkID:         rec.SubnetworkID,
				ProtocolVersion:      rec.ProtocolVersion,
				UserAgent:            rec.UserAgent,
				FirstSeen:            toUnix(rec.FirstSeen),
				LastAttempt:          toUnix(rec.LastAttempt),
				LastSuccess:          toUnix(rec.LastSuccess),
				AttemptsSinceSuccess: rec.AttemptsSinceSuccess,
				IsKnownPeer:          rec.IsKnownPeer,
				EverProbed:           rec.EverProbed,
			}
		}
		sh.mu.RUnlock()
	}

	if err := s.writeAtomic(out); err != nil {
		atomic.AddUint64(&s.persistFailures, 1)
		s.logger.Errorf("store: persist failed: %v\n", err)
		return err
	}
	return nil
}

func (s *Store) writeAtomic(out persistedFile) error {
	dir := filepath.Dir(s.peersFile)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.peersFile)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	// Clean up the temp file on any early return; harmless once the
	// rename below has already consumed it.
	defer os.Remove(tmpName)

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		tmp.Close()
		return fmt.Errorf("encode: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.peersFile); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// Load reads s.peersFile into the store, per spec.md §4.3's cold-start
// step. A missing file is not an error — the store simply starts empty.
// A corrupt or unrecognized-version file is moved aside to
// "<peersFile>.corrupt-<unix timestamp>" and the store again starts
// empty, rather than failing startup.
func (s *Store) Load() error {
	if s.peersFile == "" {
		return nil
	}

	data, err := os.ReadFile(s.peersFile)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read peers file: %w", err)
	}

	var in persistedFile
	if err := json.Unmarshal(data, &in); err != nil || in.FormatVersion != formatVersion {
		s.quarantine()
		return nil
	}

	for key, pr := range in.Records {
		parsed := net.ParseIP(pr.IP)
		if parsed == nil {
			continue
		}
		addr := peeraddr.New(parsed, pr.Port)
		rec := &Record{
			Address:              addr,
			SubnetworkID:         pr.SubnetworkID,
			ProtocolVersion:      pr.ProtocolVersion,
			UserAgent:            pr.UserAgent,
			FirstSeen:            fromUnix(pr.FirstSeen),
			LastAttempt:          fromUnix(pr.LastAttempt),
			LastSuccess:          fromUnix(pr.LastSuccess),
			AttemptsSinceSuccess: pr.AttemptsSinceSuccess,
			IsKnownPeer:          pr.IsKnownPeer,
			EverProbed:           pr.EverProbed,
		}
		sh := s.shardFor(key)
		sh.mu.Lock()
		sh.records[key] = rec
		sh.mu.Unlock()
	}
	return nil
}

func (s *Store) quarantine() {
	dest := fmt.Sprintf("%s.corrupt-%d", s.peersFile, s.clock.Now().Unix())
	if err := os.Rename(s.peersFile, dest); err != nil {
		s.logger.Errorf("store: failed to quarantine corrupt peers file: %v\n", err)
		return
	}
	s.logger.Warnf("store: quarantined corrupt peers file to %s\n", dest)
}
