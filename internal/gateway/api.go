package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"plantdoc/internal/model"

	"go.uber.org/zap"
)

type plantTypeDTO struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (p plantTypeDTO) toModel() model.PlantType {
	return model.PlantType{ID: p.ID, Name: p.Name, Description: p.Description}
}

type answerDTO struct {
	ID         int64  `json:"id"`
	AnswerText string `json:"answer_text"`
}

type questionDTO struct {
	ID           int64       `json:"id"`
	QuestionText string      `json:"question_text"`
	Order        *int        `json:"order"`
	Answers      []answerDTO `json:"answers"`
}

type questionnaireDTO struct {
	Questions []questionDTO `json:"questions"`
}

type diagnosisRequest struct {
	Text        string `json:"text"`
	PlantTypeID int64  `json:"plant_type_id"`
}

type diagnosisResponse struct {
	Data *string `json:"data"`
}

type reportDTO struct {
	ID          int64        `json:"id"`
	PlantType   plantTypeDTO `json:"plant_type"`
	AIDiagnosis string       `json:"ai_diagnosis"`
	CreatedAt   string       `json:"created_at"`
}

// decodeList accepts both a bare JSON array and a {"data": [...]} envelope
func decodeList[T any](body []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(body)
	var items []T
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		return items, nil
	}
	var env struct {
		Data []T `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// ListPlantTypes returns every plant type
func (c *Client) ListPlantTypes(ctx context.Context) ([]model.PlantType, error) {
	body, err := c.doRequest(ctx, http.MethodGet, c.endpoints.PlantTypes, nil)
	if err != nil {
		return nil, err
	}
	dtos, err := decodeList[plantTypeDTO](body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse plant types: %w", err)
	}
	plants := make([]model.PlantType, 0, len(dtos))
	for _, d := range dtos {
		plants = append(plants, d.toModel())
	}
	return plants, nil
}

// GetQuestionnaire returns the questionnaire attached to a plant type,
// normalised but not yet sorted.
func (c *Client) GetQuestionnaire(ctx context.Context, plantTypeID int64) (model.Questionnaire, error) {
	body, err := c.doRequest(ctx, http.MethodGet, expand(c.endpoints.Questionnaire, plantTypeID), nil)
	if err != nil {
		return model.Questionnaire{}, err
	}
	var dto questionnaireDTO
	if err := json.Unmarshal(body, &dto); err != nil {
		return model.Questionnaire{}, fmt.Errorf("failed to parse questionnaire: %w", err)
	}
	q := normalizeQuestionnaire(dto, c.logger)
	q.PlantTypeID = plantTypeID
	return q, nil
}

// normalizeQuestionnaire drops questions and answers without text and
// places questions without an order after every ordered one, keeping the
// server sequence among them.
func normalizeQuestionnaire(dto questionnaireDTO, logger *zap.Logger) model.Questionnaire {
	maxOrder := math.MinInt
	for _, q := range dto.Questions {
		if q.Order != nil && *q.Order > maxOrder {
			maxOrder = *q.Order
		}
	}
	fallback := 0
	if maxOrder != math.MinInt {
		fallback = maxOrder + 1
	}

	out := model.Questionnaire{Questions: make([]model.Question, 0, len(dto.Questions))}
	for _, q := range dto.Questions {
		text := strings.TrimSpace(q.QuestionText)
		if text == "" {
			logger.Warn("dropping question without text", zap.Int64("questionId", q.ID))
			continue
		}
		order := fallback
		if q.Order != nil {
			order = *q.Order
		}
		answers := make([]model.Answer, 0, len(q.Answers))
		for _, a := range q.Answers {
			if strings.TrimSpace(a.AnswerText) == "" {
				continue
			}
			answers = append(answers, model.Answer{ID: a.ID, Text: a.AnswerText})
		}
		out.Questions = append(out.Questions, model.Question{
			ID:      q.ID,
			Text:    q.QuestionText,
			Order:   order,
			Answers: answers,
		})
	}
	return out
}

// GenerateDiagnosis submits an assessment transcript and returns the
// markdown diagnosis verbatim
func (c *Client) GenerateDiagnosis(ctx context.Context, transcript string, plantTypeID int64) (string, error) {
	body, err := c.doRequest(ctx, http.MethodPost, c.endpoints.Diagnosis, diagnosisRequest{
		Text:        transcript,
		PlantTypeID: plantTypeID,
	})
	if err != nil {
		return "", err
	}
	var resp diagnosisResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to parse diagnosis: %w", err)
	}
	if resp.Data == nil || strings.TrimSpace(*resp.Data) == "" {
		return "", ErrEmptyDiagnosis
	}
	return *resp.Data, nil
}

// ListReports returns the user's archived diagnoses
func (c *Client) ListReports(ctx context.Context) ([]model.SavedReport, error) {
	body, err := c.doRequest(ctx, http.MethodGet, c.endpoints.Reports, nil)
	if err != nil {
		return nil, err
	}
	dtos, err := decodeList[reportDTO](body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse reports: %w", err)
	}
	reports := make([]model.SavedReport, 0, len(dtos))
	for _, d := range dtos {
		reports = append(reports, model.SavedReport{
			ID:        d.ID,
			PlantType: d.PlantType.toModel(),
			Diagnosis: d.AIDiagnosis,
			CreatedAt: parseTimestamp(d.CreatedAt),
		})
	}
	return reports, nil
}

// DeleteReport removes an archived diagnosis
func (c *Client) DeleteReport(ctx context.Context, id int64) error {
	_, err := c.doRequest(ctx, http.MethodDelete, expand(c.endpoints.DeleteReport, id), nil)
	return err
}

func parseTimestamp(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
