package mapper

import (
	"encoding/json"

	"gorm.io/datatypes"

	"eaglearn-be/internal/entity"
	"eaglearn-be/internal/model"
)

type ObservationMapper struct{}

func NewObservationMapper() *ObservationMapper {
	return &ObservationMapper{}
}

func (m *ObservationMapper) ToEntity(o *model.Observation) (*entity.Observation, error) {
	if o == nil {
		return nil, nil
	}

	var payload []float64
	if len(o.Payload) > 0 {
		if err := json.Unmarshal(o.Payload, &payload); err != nil {
			return nil, err
		}
	}

	return &entity.Observation{
		Id:         o.Id,
		SessionId:  o.SessionId,
		Family:     entity.SignalFamily(o.Family),
		CapturedAt: o.CapturedAt,
		Payload:    payload,
		Confidence: o.Confidence,
		CreatedAt:  o.CreatedAt,
	}, nil
}

func (m *ObservationMapper) ToModel(o *entity.Observation) (*model.Observation, error) {
	if o == nil {
		return nil, nil
	}

	payload, err := json.Marshal(o.Payload)
	if err != nil {
		return nil, err
	}

	return &model.Observation{
		Id:         o.Id,
		SessionId:  o.SessionId,
		Family:     string(o.Family),
		CapturedAt: o.CapturedAt,
		Payload:    datatypes.JSON(payload),
		Confidence: o.Confidence,
		CreatedAt:  o.CreatedAt,
	}, nil
}

func (m *ObservationMapper) ToEntities(rows []*model.Observation) ([]*entity.Observation, error) {
	entities := make([]*entity.Observation, 0, len(rows))
	for _, row := range rows {
		e, err := m.ToEntity(row)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, nil
}
