package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UpsertResumeScore creates or overwrites the score for a (resume, job)
// pair. Re-scoring replaces all fields and refreshes scored_at; history is
// preserved only through that timestamp.
func (db *DB) UpsertResumeScore(ctx context.Context, s *ResumeScore) error {
	explanation, err := json.Marshal(s.Explanation)
	if err != nil {
		return fmt.Errorf("failed to marshal score explanation: %w", err)
	}

	err = db.pool.QueryRow(ctx,
		`INSERT INTO resume_scores (resume_id, job_id, overall_score, confidence, skills_score, experience_score,
		                            education_score, certification_score, overall_fit_score, explanation,
		                            model_version, rubric_version, scored_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		 ON CONFLICT (resume_id, job_id) DO UPDATE SET
		     overall_score = $3,
		     confidence = $4,
		     skills_score = $5,
		     experience_score = $6,
		     education_score = $7,
		     certification_score = $8,
		     overall_fit_score = $9,
		     explanation = $10,
		     model_version = $11,
		     rubric_version = $12,
		     scored_at = NOW()
		 RETURNING scored_at`,
		s.ResumeID, s.JobID, s.OverallScore, s.Confidence, s.SkillsScore, s.ExperienceScore,
		s.EducationScore, s.CertificationScore, s.OverallFitScore, explanation,
		s.ModelVersion, s.RubricVersion,
	).Scan(&s.ScoredAt)
	if err != nil {
		return fmt.Errorf("failed to upsert resume score: %w", err)
	}
	return nil
}

// GetResumeScore retrieves the score for a (resume, job) pair.
func (db *DB) GetResumeScore(ctx context.Context, resumeID, jobID uuid.UUID) (*ResumeScore, error) {
	var s ResumeScore
	var explanation []byte
	err := db.pool.QueryRow(ctx,
		`SELECT resume_id, job_id, overall_score, confidence, skills_score, experience_score,
		        education_score, certification_score, overall_fit_score, explanation,
		        model_version, rubric_version, scored_at
		 FROM resume_scores WHERE resume_id = $1 AND job_id = $2`,
		resumeID, jobID,
	).Scan(&s.ResumeID, &s.JobID, &s.OverallScore, &s.Confidence, &s.SkillsScore, &s.ExperienceScore,
		&s.EducationScore, &s.CertificationScore, &s.OverallFitScore, &explanation,
		&s.ModelVersion, &s.RubricVersion, &s.ScoredAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get resume score: %w", err)
	}
	if len(explanation) > 0 {
		if err := json.Unmarshal(explanation, &s.Explanation); err != nil {
			return nil, fmt.Errorf("failed to unmarshal score explanation: %w", err)
		}
	}
	return &s, nil
}
