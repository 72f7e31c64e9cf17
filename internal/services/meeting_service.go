package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yukikurage/teamwork-api/internal/access"
	apierrors "github.com/yukikurage/teamwork-api/internal/errors"
	"github.com/yukikurage/teamwork-api/internal/models"
	"github.com/yukikurage/teamwork-api/internal/patch"
	"github.com/yukikurage/teamwork-api/internal/repository"
	"github.com/yukikurage/teamwork-api/internal/utils"
)

type MeetingService struct {
	store *repository.Store
	now   func() time.Time
}

func NewMeetingService(store *repository.Store) *MeetingService {
	return &MeetingService{
		store: store,
		now:   time.Now,
	}
}

type CreateMeetingInput struct {
	Title          string
	Description    string
	ScheduledAt    time.Time
	TeamID         *uint64
	ParticipantIDs []uint64
	AddTeamMembers bool
}

type UpdateMeetingInput struct {
	Title          patch.Field[string]
	Description    patch.Field[string]
	ScheduledAt    patch.Field[time.Time]
	ParticipantIDs patch.Field[[]uint64]
}

type ListMeetingsInput struct {
	TeamID     *uint64
	From       *time.Time
	To         *time.Time
	Mine       bool
	Pagination utils.PaginationParams
}

// CreateMeeting schedules a meeting organized by the caller. Explicit
// participants must be members of the team; AddTeamMembers adds everyone
// currently in it.
func (s *MeetingService) CreateMeeting(ctx context.Context, p access.Principal, input CreateMeetingInput) (*models.Meeting, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, validation("title is required")
	}
	if input.ScheduledAt.IsZero() {
		return nil, validation("scheduled_at is required")
	}
	if input.ScheduledAt.Before(s.now()) {
		return nil, validation("meeting cannot be scheduled in the past")
	}

	teamID, err := resolveTeam(p, input.TeamID)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Teams.FindByID(ctx, teamID); err != nil {
		return nil, lookup(err, ErrTeamNotFound, "team")
	}
	if err := authorizeTeamManager(p, teamID); err != nil {
		return nil, err
	}

	participants, err := s.checkParticipants(ctx, teamID, input.ParticipantIDs)
	if err != nil {
		return nil, err
	}
	if input.AddTeamMembers {
		members, err := s.store.Users.ListByTeam(ctx, teamID)
		if err != nil {
			return nil, fmt.Errorf("failed to list team members: %w", err)
		}
		for _, m := range members {
			participants = append(participants, m.ID)
		}
		participants = uniqueUint64(participants)
	}

	meeting := &models.Meeting{
		Title:       title,
		Description: input.Description,
		ScheduledAt: input.ScheduledAt.UTC(),
		TeamID:      teamID,
		OrganizerID: p.UserID,
	}

	if err := s.store.Meetings.Create(ctx, meeting, participants); err != nil {
		return nil, fmt.Errorf("failed to create meeting: %w", err)
	}

	return s.store.Meetings.FindByID(ctx, meeting.ID)
}

func (s *MeetingService) GetMeeting(ctx context.Context, p access.Principal, id uint64) (*models.Meeting, error) {
	meeting, err := s.store.Meetings.FindByID(ctx, id)
	if err != nil {
		return nil, lookup(err, ErrMeetingNotFound, "meeting")
	}
	if err := access.Authorize(access.CanAccessTeam(p, meeting.TeamID), "not a member of this team"); err != nil {
		return nil, err
	}
	return meeting, nil
}

// ListMeetings lists the caller's team meetings, soonest first.
func (s *MeetingService) ListMeetings(ctx context.Context, p access.Principal, input ListMeetingsInput) ([]models.Meeting, int64, error) {
	filter := repository.MeetingFilter{
		From:       input.From,
		To:         input.To,
		Pagination: input.Pagination,
	}

	switch {
	case input.TeamID != nil:
		if err := access.Authorize(access.CanAccessTeam(p, *input.TeamID), "not a member of this team"); err != nil {
			return nil, 0, err
		}
		filter.TeamID = input.TeamID
	case p.IsAdmin():
	case p.HasTeam():
		filter.TeamID = p.TeamID
	default:
		return []models.Meeting{}, 0, nil
	}

	if input.Mine {
		filter.ParticipantID = &p.UserID
	}

	meetings, total, err := s.store.Meetings.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list meetings: %w", err)
	}
	return meetings, total, nil
}

func (s *MeetingService) UpdateMeeting(ctx context.Context, p access.Principal, id uint64, input UpdateMeetingInput) (*models.Meeting, error) {
	meeting, err := s.store.Meetings.FindByID(ctx, id)
	if err != nil {
		return nil, lookup(err, ErrMeetingNotFound, "meeting")
	}
	if err := authorizeTeamManager(p, meeting.TeamID); err != nil {
		return nil, err
	}

	if patch.Apply(&meeting.Title, input.Title) {
		meeting.Title = strings.TrimSpace(meeting.Title)
		if meeting.Title == "" {
			return nil, validation("title cannot be empty")
		}
	}
	patch.Apply(&meeting.Description, input.Description)
	if patch.Apply(&meeting.ScheduledAt, input.ScheduledAt) {
		if meeting.ScheduledAt.Before(s.now()) {
			return nil, validation("meeting cannot be scheduled in the past")
		}
		meeting.ScheduledAt = meeting.ScheduledAt.UTC()
	}

	var participants []uint64
	if input.ParticipantIDs.Set {
		participants, err = s.checkParticipants(ctx, meeting.TeamID, input.ParticipantIDs.Value)
		if err != nil {
			return nil, err
		}
	}

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Meetings.Update(ctx, meeting); err != nil {
			return fmt.Errorf("failed to update meeting: %w", err)
		}
		if input.ParticipantIDs.Set {
			if err := tx.Meetings.ReplaceParticipants(ctx, meeting.ID, participants); err != nil {
				return fmt.Errorf("failed to update participants: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.store.Meetings.FindByID(ctx, id)
}

func (s *MeetingService) DeleteMeeting(ctx context.Context, p access.Principal, id uint64) error {
	meeting, err := s.store.Meetings.FindByID(ctx, id)
	if err != nil {
		return lookup(err, ErrMeetingNotFound, "meeting")
	}
	if err := authorizeTeamManager(p, meeting.TeamID); err != nil {
		return err
	}

	if err := s.store.Meetings.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete meeting: %w", err)
	}
	return nil
}

// checkParticipants deduplicates ids and rejects any that are not in the team,
// listing the offenders in the error details.
func (s *MeetingService) checkParticipants(ctx context.Context, teamID uint64, ids []uint64) ([]uint64, error) {
	ids = uniqueUint64(ids)
	if len(ids) == 0 {
		return ids, nil
	}

	members, err := s.store.Users.FilterTeamMembers(ctx, teamID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to check participants: %w", err)
	}

	inTeam := make(map[uint64]struct{}, len(members))
	for _, id := range members {
		inTeam[id] = struct{}{}
	}

	var invalid []uint64
	for _, id := range ids {
		if _, ok := inTeam[id]; !ok {
			invalid = append(invalid, id)
		}
	}
	if len(invalid) > 0 {
		return nil, apierrors.NewWithDetails(apierrors.KindValidation,
			"participants must be members of the meeting's team",
			map[string][]uint64{"invalid_participant_ids": invalid})
	}

	return ids, nil
}

// uniqueUint64 returns the distinct values of ids in ascending order.
func uniqueUint64(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
