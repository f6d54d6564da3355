package mapper

import (
	"eaglearn-be/internal/entity"
	"eaglearn-be/internal/model"
)

type CompositeScoreMapper struct{}

func NewCompositeScoreMapper() *CompositeScoreMapper {
	return &CompositeScoreMapper{}
}

func (m *CompositeScoreMapper) ToEntity(s *model.CompositeScore) *entity.CompositeScore {
	if s == nil {
		return nil
	}

	return &entity.CompositeScore{
		Id:                     s.Id,
		SessionId:              s.SessionId,
		WindowStart:            s.WindowStart,
		WindowEnd:              s.WindowEnd,
		FocusScore:             s.FocusScore,
		EngagementScore:        s.EngagementScore,
		StressScore:            s.StressScore,
		PostureScore:           s.PostureScore,
		OverallScore:           s.OverallScore,
		ContributingConfidence: s.ContributingConfidence,
		CreatedAt:              s.CreatedAt,
	}
}

func (m *CompositeScoreMapper) ToModel(s *entity.CompositeScore) *model.CompositeScore {
	if s == nil {
		return nil
	}

	return &model.CompositeScore{
		Id:                     s.Id,
		SessionId:              s.SessionId,
		WindowStart:            s.WindowStart,
		WindowEnd:              s.WindowEnd,
		FocusScore:             s.FocusScore,
		EngagementScore:        s.EngagementScore,
		StressScore:            s.StressScore,
		PostureScore:           s.PostureScore,
		OverallScore:           s.OverallScore,
		ContributingConfidence: s.ContributingConfidence,
		CreatedAt:              s.CreatedAt,
	}
}

func (m *CompositeScoreMapper) ToEntities(rows []*model.CompositeScore) []*entity.CompositeScore {
	entities := make([]*entity.CompositeScore, len(rows))
	for i, row := range rows {
		entities[i] = m.ToEntity(row)
	}
	return entities
}
