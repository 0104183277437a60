package store

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/anchorline/did-audit/pkg/types"
)

// MarshalEvent serializes an event record to JSON bytes.
func MarshalEvent(rec *types.EventRecord) ([]byte, error) {
	if rec == nil {
		return nil, errors.New("cannot marshal nil EventRecord")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal EventRecord")
	}
	return data, nil
}

// UnmarshalEvent deserializes an event record from JSON bytes.
func UnmarshalEvent(data []byte) (*types.EventRecord, error) {
	if len(data) == 0 {
		return nil, errors.New("cannot unmarshal empty data")
	}

	var rec types.EventRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal EventRecord")
	}
	return &rec, nil
}

// MarshalAlert serializes an integrity alert to JSON bytes.
func MarshalAlert(alert *types.IntegrityAlert) ([]byte, error) {
	if alert == nil {
		return nil, errors.New("cannot marshal nil IntegrityAlert")
	}

	data, err := json.Marshal(alert)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal IntegrityAlert")
	}
	return data, nil
}

// UnmarshalAlert deserializes an integrity alert from JSON bytes.
func UnmarshalAlert(data []byte) (*types.IntegrityAlert, error) {
	if len(data) == 0 {
		return nil, errors.New("cannot unmarshal empty data")
	}

	var alert types.IntegrityAlert
	if err := json.Unmarshal(data, &alert); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal IntegrityAlert")
	}
	return &alert, nil
}
