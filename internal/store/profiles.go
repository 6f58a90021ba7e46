package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"github.com/quellwerk/akquise-engine/internal/posting"
	"github.com/quellwerk/akquise-engine/internal/shortlist"
)

// InsertProfile persists a candidate profile. The embedding may be nil and
// attached later via SaveProfileEmbedding.
func (s *Store) InsertProfile(ctx context.Context, p *posting.CandidateProfile, embedding []float32) (int64, error) {
	skills, _ := json.Marshal(p.Skills)

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (name, role, skills, years_experience, min_hourly_rate, embedding)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.Name, p.Role, string(skills), p.YearsExperience, p.MinHourlyRate, float32SliceToBytes(embedding),
	)
	if err != nil {
		return 0, fmt.Errorf("insert profile: %w", err)
	}
	return res.LastInsertId()
}

// ProfileByID loads one candidate profile.
func (s *Store) ProfileByID(ctx context.Context, id int64) (*posting.CandidateProfile, error) {
	var p posting.CandidateProfile
	var skills string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, role, skills, years_experience, min_hourly_rate
		FROM profiles WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.Role, &skills, &p.YearsExperience, &p.MinHourlyRate)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("profile %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load profile %d: %w", id, err)
	}

	_ = json.Unmarshal([]byte(skills), &p.Skills)
	return &p, nil
}

// Profiles returns all candidate profiles.
func (s *Store) Profiles(ctx context.Context) ([]*posting.CandidateProfile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, role, skills, years_experience, min_hourly_rate
		FROM profiles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*posting.CandidateProfile
	for rows.Next() {
		var p posting.CandidateProfile
		var skills string
		if err := rows.Scan(&p.ID, &p.Name, &p.Role, &skills, &p.YearsExperience, &p.MinHourlyRate); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		_ = json.Unmarshal([]byte(skills), &p.Skills)
		profiles = append(profiles, &p)
	}
	return profiles, rows.Err()
}

// SaveProfileEmbedding stores the embedding vector of a profile.
func (s *Store) SaveProfileEmbedding(ctx context.Context, id int64, embedding []float32) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE profiles SET embedding = ? WHERE id = ?`,
		float32SliceToBytes(embedding), id); err != nil {
		return fmt.Errorf("save embedding for profile %d: %w", id, err)
	}
	return nil
}

// ProfileVectors returns the stored embeddings for similarity ranking.
// Profiles without an embedding are skipped.
func (s *Store) ProfileVectors(ctx context.Context) ([]shortlist.ProfileVector, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, embedding FROM profiles WHERE embedding IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("query profile vectors: %w", err)
	}
	defer rows.Close()

	var vectors []shortlist.ProfileVector
	for rows.Next() {
		var id int64
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, fmt.Errorf("scan profile vector: %w", err)
		}
		if len(blob) == 0 {
			continue
		}
		vectors = append(vectors, shortlist.ProfileVector{
			ProfileID: id,
			Vector:    bytesToFloat32Slice(blob),
		})
	}
	return vectors, rows.Err()
}

func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToFloat32Slice(data []byte) []float32 {
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
