package application

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-firestore-crud/internal/domain/errs"
	"github.com/oksasatya/go-firestore-crud/internal/domain/event"
	"github.com/oksasatya/go-firestore-crud/pkg/helpers"
)

// SnapshotUploader stores an object and returns where it can be fetched. helpers.GCSUploader satisfies it.
type SnapshotUploader interface {
	Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error)
}

type UserStatistics struct {
	TotalUsers int64   `json:"total_users"`
	AverageAge float64 `json:"average_age"`
	MinAge     int     `json:"min_age"`
	MaxAge     int     `json:"max_age"`
}

// GetUserStatistics takes the total from Count and the age figures from a full scan.
// With no users every figure is zero.
func (s *Service) GetUserStatistics(ctx context.Context) (UserStatistics, error) {
	var st UserStatistics
	total, err := s.Repo.Count(ctx)
	if err != nil {
		return st, err
	}
	st.TotalUsers = total

	users, err := s.Repo.FindAll(ctx)
	if err != nil {
		return st, err
	}
	if len(users) == 0 {
		return st, nil
	}
	sum := 0
	st.MinAge, st.MaxAge = users[0].Age, users[0].Age
	for _, u := range users {
		sum += u.Age
		st.MinAge = min(st.MinAge, u.Age)
		st.MaxAge = max(st.MaxAge, u.Age)
	}
	st.AverageAge = float64(sum) / float64(len(users))

	helpers.LogDebug(s.Logger, "user statistics", logrus.Fields{
		"total":   st.TotalUsers,
		"avg_age": st.AverageAge,
		"min_age": st.MinAge,
		"max_age": st.MaxAge,
	})
	return st, nil
}

type snapshotFile struct {
	ExportedAt time.Time             `json:"exported_at"`
	Count      int                   `json:"count"`
	Users      []*event.UserSnapshot `json:"users"`
}

// ExportUsers writes every user as one JSON document to the snapshot store and returns its URL.
func (s *Service) ExportUsers(ctx context.Context) (string, error) {
	const op = "Service.ExportUsers"
	if s.Snapshots == nil {
		return "", errs.Validation(op, "snapshot export is not configured")
	}
	users, err := s.Repo.FindAll(ctx)
	if err != nil {
		return "", err
	}
	now := time.Now().UTC()
	file := snapshotFile{ExportedAt: now, Count: len(users), Users: make([]*event.UserSnapshot, 0, len(users))}
	for _, u := range users {
		file.Users = append(file.Users, event.Snapshot(u))
	}
	b, err := json.Marshal(file)
	if err != nil {
		return "", errs.Store(op, err)
	}
	objectPath := path.Join("exports", now.Format("20060102"), "users-"+now.Format("150405")+"-"+uuid.NewString()+".json")
	url, err := s.Snapshots.Upload(ctx, objectPath, "application/json", bytes.NewReader(b))
	if err != nil {
		helpers.LogError(s.Logger, "snapshot upload failed", err, logrus.Fields{"object": objectPath})
		return "", errs.Store(op, err)
	}
	helpers.LogInfo(s.Logger, "users exported", logrus.Fields{"count": len(users), "url": url})
	return url, nil
}
