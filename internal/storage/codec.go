package storage

import (
	"encoding/json"
	"errors"

	"pottsfit/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeRun(run model.RunRecord) ([]byte, error) {
	return json.Marshal(run)
}

func DecodeRun(data []byte) (model.RunRecord, error) {
	var run model.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return model.RunRecord{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.RunRecord{}, err
	}
	return run, nil
}

func EncodeTrajectory(trajectory []model.TrajectoryPoint) ([]byte, error) {
	return json.Marshal(trajectory)
}

func DecodeTrajectory(data []byte) ([]model.TrajectoryPoint, error) {
	var trajectory []model.TrajectoryPoint
	if err := json.Unmarshal(data, &trajectory); err != nil {
		return nil, err
	}
	return trajectory, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
