package persistence

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/tidwall/gjson"

	"github.com/talgya/geocoin/internal/world"
)

// SchemaVersion is written into every saved slot. Blobs without a version
// field are read as the legacy browser-game format.
const SchemaVersion = 1

// ErrCorruptState marks a saved slot that does not match the schema.
var ErrCorruptState = errors.New("corrupt saved state")

// CorruptStateError describes why a slot was rejected.
type CorruptStateError struct {
	Slot   string
	Reason string
	Err    error
}

func (e *CorruptStateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: slot %q: %s: %v", ErrCorruptState, e.Slot, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: slot %q: %s", ErrCorruptState, e.Slot, e.Reason)
}

func (e *CorruptStateError) Is(target error) bool {
	return target == ErrCorruptState
}

func (e *CorruptStateError) Unwrap() error {
	return e.Err
}

func corrupt(slot, reason string, err error) error {
	return &CorruptStateError{Slot: slot, Reason: reason, Err: err}
}

// CacheEntry is the saved form of one cache.
type CacheEntry struct {
	Coord     world.GridCoord
	Coins     []world.Coin
	Populated bool
}

// State is a full-state snapshot.
type State struct {
	Position  world.LatLng
	Inventory []world.Coin
	Caches    []CacheEntry
}

// Wire records. Field names match the legacy save format.

type locationRecord struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type cacheRecord struct {
	I         int          `json:"i"`
	J         int          `json:"j"`
	Coins     []world.Coin `json:"coins"`
	Populated *bool        `json:"populated,omitempty"`
}

type stateRecord struct {
	Version        int             `json:"version,omitempty"`
	PlayerLocation *locationRecord `json:"playerLocation"`
	PlayerCoins    []world.Coin    `json:"playerCoins"`
	CacheData      []cacheRecord   `json:"cacheData"`
}

type hibernationRecord struct {
	Version   int           `json:"version,omitempty"`
	CacheData []cacheRecord `json:"cacheData"`
}

func entryRecords(entries []CacheEntry) []cacheRecord {
	records := make([]cacheRecord, len(entries))
	for i, e := range entries {
		populated := e.Populated
		coins := e.Coins
		if coins == nil {
			coins = []world.Coin{}
		}
		records[i] = cacheRecord{I: e.Coord.I, J: e.Coord.J, Coins: coins, Populated: &populated}
	}
	return records
}

func encodeState(s State) ([]byte, error) {
	inv := s.Inventory
	if inv == nil {
		inv = []world.Coin{}
	}
	return json.Marshal(stateRecord{
		Version:        SchemaVersion,
		PlayerLocation: &locationRecord{Latitude: s.Position.Lat, Longitude: s.Position.Lng},
		PlayerCoins:    inv,
		CacheData:      entryRecords(s.Caches),
	})
}

func encodeHibernation(entries []CacheEntry) ([]byte, error) {
	return json.Marshal(hibernationRecord{
		Version:   SchemaVersion,
		CacheData: entryRecords(entries),
	})
}

// checkVersion probes the version field before the strict decode so an
// unknown future format is reported as such rather than as a field error.
func checkVersion(slot string, root gjson.Result) error {
	v := root.Get("version")
	if !v.Exists() {
		return nil
	}
	if v.Type != gjson.Number || v.Num != math.Trunc(v.Num) {
		return corrupt(slot, "version is not an integer", nil)
	}
	if int(v.Num) != SchemaVersion {
		return corrupt(slot, fmt.Sprintf("unsupported schema version %d", int(v.Num)), nil)
	}
	return nil
}

func strictDecode(blob []byte, target any) error {
	dec := json.NewDecoder(bytes.NewReader(blob))
	dec.DisallowUnknownFields()
	return dec.Decode(target)
}

func decodeState(blob []byte) (State, error) {
	const slot = StateKey

	if !gjson.ValidBytes(blob) {
		return State{}, corrupt(slot, "not valid JSON", nil)
	}
	root := gjson.ParseBytes(blob)
	if !root.IsObject() {
		return State{}, corrupt(slot, "expected an object", nil)
	}
	if err := checkVersion(slot, root); err != nil {
		return State{}, err
	}

	var rec stateRecord
	if err := strictDecode(blob, &rec); err != nil {
		return State{}, corrupt(slot, "decode", err)
	}
	if rec.PlayerLocation == nil {
		return State{}, corrupt(slot, "missing playerLocation", nil)
	}
	pos := world.LatLng{Lat: rec.PlayerLocation.Latitude, Lng: rec.PlayerLocation.Longitude}
	if pos.Lat < -90 || pos.Lat > 90 || pos.Lng < -180 || pos.Lng > 180 {
		return State{}, corrupt(slot, fmt.Sprintf("player location %v out of range", pos), nil)
	}

	v := newValidator(slot)
	for _, coin := range rec.PlayerCoins {
		if err := v.coin(coin); err != nil {
			return State{}, err
		}
	}
	entries, err := v.caches(rec.CacheData)
	if err != nil {
		return State{}, err
	}

	return State{
		Position:  pos,
		Inventory: rec.PlayerCoins,
		Caches:    entries,
	}, nil
}

func decodeHibernation(blob []byte) ([]CacheEntry, error) {
	const slot = HibernationKey

	if !gjson.ValidBytes(blob) {
		return nil, corrupt(slot, "not valid JSON", nil)
	}
	root := gjson.ParseBytes(blob)

	var records []cacheRecord
	switch {
	case root.IsArray():
		// The legacy format is a bare list of caches.
		if err := strictDecode(blob, &records); err != nil {
			return nil, corrupt(slot, "decode", err)
		}
	case root.IsObject():
		if err := checkVersion(slot, root); err != nil {
			return nil, err
		}
		var rec hibernationRecord
		if err := strictDecode(blob, &rec); err != nil {
			return nil, corrupt(slot, "decode", err)
		}
		records = rec.CacheData
	default:
		return nil, corrupt(slot, "expected an object or array", nil)
	}

	return newValidator(slot).caches(records)
}

// validator enforces cross-record invariants: cache coordinates are unique
// and no coin identity is held twice.
type validator struct {
	slot   string
	coords map[world.GridCoord]bool
	coins  map[world.Coin]bool
}

func newValidator(slot string) *validator {
	return &validator{
		slot:   slot,
		coords: make(map[world.GridCoord]bool),
		coins:  make(map[world.Coin]bool),
	}
}

func (v *validator) coin(c world.Coin) error {
	if c.Serial < 0 {
		return corrupt(v.slot, fmt.Sprintf("coin %s has a negative serial", c), nil)
	}
	if v.coins[c] {
		return corrupt(v.slot, fmt.Sprintf("coin %s appears more than once", c), nil)
	}
	v.coins[c] = true
	return nil
}

func (v *validator) caches(records []cacheRecord) ([]CacheEntry, error) {
	entries := make([]CacheEntry, 0, len(records))
	for _, r := range records {
		coord := world.GridCoord{I: r.I, J: r.J}
		if v.coords[coord] {
			return nil, corrupt(v.slot, fmt.Sprintf("cache %v appears more than once", coord), nil)
		}
		v.coords[coord] = true

		for _, c := range r.Coins {
			if err := v.coin(c); err != nil {
				return nil, err
			}
		}

		populated := len(r.Coins) > 0
		if r.Populated != nil {
			populated = *r.Populated
		}
		if !populated && len(r.Coins) > 0 {
			return nil, corrupt(v.slot, fmt.Sprintf("cache %v holds coins but is not populated", coord), nil)
		}

		entries = append(entries, CacheEntry{Coord: coord, Coins: r.Coins, Populated: populated})
	}
	return entries, nil
}
