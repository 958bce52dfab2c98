package services

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/openbracket/tournament-engine/models"
	"github.com/openbracket/tournament-engine/repositories"
	"github.com/openbracket/tournament-engine/storage"
)

// In-memory repository doubles for exercising service orchestration without a
// database. The SQLExecutor arguments are ignored; transactional boundaries
// are scripted through sqlmock in the tests themselves.

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeDrawSessionRepo struct {
	sessions         map[string]*models.DrawSession
	markAppliedCalls int
}

func newFakeDrawSessionRepo(sessions ...*models.DrawSession) *fakeDrawSessionRepo {
	f := &fakeDrawSessionRepo{sessions: make(map[string]*models.DrawSession)}
	for _, s := range sessions {
		f.sessions[s.PublicID] = s
	}
	return f
}

func (f *fakeDrawSessionRepo) Create(ctx context.Context, session *models.DrawSession) error {
	session.ID = len(f.sessions) + 1
	f.sessions[session.PublicID] = session
	return nil
}

func (f *fakeDrawSessionRepo) GetByPublicID(ctx context.Context, publicID string) (*models.DrawSession, error) {
	session, ok := f.sessions[publicID]
	if !ok {
		return nil, repositories.ErrDrawSessionNotFound
	}
	return session, nil
}

func (f *fakeDrawSessionRepo) GetByPublicIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, publicID string) (*models.DrawSession, error) {
	return f.GetByPublicID(ctx, publicID)
}

func (f *fakeDrawSessionRepo) List(ctx context.Context, filter repositories.DrawSessionFilter) ([]*models.DrawSession, error) {
	out := make([]*models.DrawSession, 0, len(f.sessions))
	for _, s := range f.sessions {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeDrawSessionRepo) UpdatePayloads(ctx context.Context, id int, payload, result *string) error {
	for _, s := range f.sessions {
		if s.ID == id {
			if payload != nil {
				s.PayloadJSON = payload
			}
			if result != nil {
				s.ResultJSON = result
			}
			return nil
		}
	}
	return repositories.ErrDrawSessionNotFound
}

func (f *fakeDrawSessionRepo) MarkApplied(ctx context.Context, exec repositories.SQLExecutor, id int, appliedAt time.Time) error {
	for _, s := range f.sessions {
		if s.ID == id {
			s.Status = models.DrawSessionApplied
			at := appliedAt
			s.AppliedAt = &at
			f.markAppliedCalls++
			return nil
		}
	}
	return repositories.ErrDrawSessionNotFound
}

type fakeParticipantRepo struct {
	participants    map[int]*models.Participant
	nextID          int
	updateSeedCalls int
	deleted         []int
}

func newFakeParticipantRepo(participants ...*models.Participant) *fakeParticipantRepo {
	f := &fakeParticipantRepo{participants: make(map[int]*models.Participant), nextID: 1000}
	for _, p := range participants {
		f.participants[p.ID] = p
	}
	return f
}

func (f *fakeParticipantRepo) Create(ctx context.Context, exec repositories.SQLExecutor, participant *models.Participant) error {
	f.nextID++
	participant.ID = f.nextID
	f.participants[participant.ID] = participant
	return nil
}

func (f *fakeParticipantRepo) GetByID(ctx context.Context, id int) (*models.Participant, error) {
	p, ok := f.participants[id]
	if !ok {
		return nil, repositories.ErrParticipantNotFound
	}
	return p, nil
}

func (f *fakeParticipantRepo) ListByTournament(ctx context.Context, tournamentID int, filter repositories.ParticipantFilter) ([]*models.Participant, error) {
	out := make([]*models.Participant, 0)
	for _, p := range f.participants {
		if p.TournamentID != tournamentID {
			continue
		}
		if filter.Virtual != nil && p.IsVirtual != *filter.Virtual {
			continue
		}
		if filter.Status != nil && p.Status != *filter.Status {
			continue
		}
		if filter.GroupID != nil && (p.GroupID == nil || *p.GroupID != *filter.GroupID) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeParticipantRepo) ListByIDs(ctx context.Context, ids []int) ([]*models.Participant, error) {
	out := make([]*models.Participant, 0, len(ids))
	for _, id := range ids {
		if p, ok := f.participants[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeParticipantRepo) UpdateSeed(ctx context.Context, exec repositories.SQLExecutor, id int, seed *int) error {
	p, ok := f.participants[id]
	if !ok {
		return repositories.ErrParticipantNotFound
	}
	p.Seed = seed
	f.updateSeedCalls++
	return nil
}

func (f *fakeParticipantRepo) UpdateStatus(ctx context.Context, id int, status models.ParticipantStatus) error {
	p, ok := f.participants[id]
	if !ok {
		return repositories.ErrParticipantNotFound
	}
	p.Status = status
	return nil
}

func (f *fakeParticipantRepo) UpdateGroup(ctx context.Context, exec repositories.SQLExecutor, id int, groupID *int) error {
	p, ok := f.participants[id]
	if !ok {
		return repositories.ErrParticipantNotFound
	}
	p.GroupID = groupID
	return nil
}

func (f *fakeParticipantRepo) Delete(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	if _, ok := f.participants[id]; !ok {
		return repositories.ErrParticipantNotFound
	}
	delete(f.participants, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeParticipantRepo) FindDoublesByMembers(ctx context.Context, exec repositories.SQLExecutor, tournamentID, memberA, memberB int) (*models.Participant, error) {
	for _, p := range f.participants {
		if p.TournamentID != tournamentID || p.IsVirtual || p.MemberID == nil || p.PartnerMemberID == nil {
			continue
		}
		if (*p.MemberID == memberA && *p.PartnerMemberID == memberB) ||
			(*p.MemberID == memberB && *p.PartnerMemberID == memberA) {
			return p, nil
		}
	}
	return nil, repositories.ErrParticipantNotFound
}

func (f *fakeParticipantRepo) FindBySeed(ctx context.Context, exec repositories.SQLExecutor, tournamentID, seed int) (*models.Participant, error) {
	for _, p := range f.participants {
		if p.TournamentID == tournamentID && !p.IsVirtual && p.Seed != nil && *p.Seed == seed {
			return p, nil
		}
	}
	return nil, repositories.ErrParticipantNotFound
}

type fakeMatchRepo struct {
	matches           map[int]*models.Match
	nextID            int
	updateResultCalls int
	replaceRefsCalls  int
}

func newFakeMatchRepo(matches ...*models.Match) *fakeMatchRepo {
	f := &fakeMatchRepo{matches: make(map[int]*models.Match), nextID: 2000}
	for _, m := range matches {
		f.matches[m.ID] = m
	}
	return f
}

func (f *fakeMatchRepo) Create(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	f.nextID++
	match.ID = f.nextID
	if match.Status == "" {
		match.Status = models.MatchStatusScheduled
	}
	f.matches[match.ID] = match
	return nil
}

func (f *fakeMatchRepo) GetByID(ctx context.Context, id int) (*models.Match, error) {
	m, ok := f.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	return m, nil
}

func (f *fakeMatchRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeMatchRepo) ListByStage(ctx context.Context, stageID int, round *int, status *models.MatchStatus) ([]*models.Match, error) {
	out := make([]*models.Match, 0)
	for _, m := range f.matches {
		if m.StageID != stageID {
			continue
		}
		if round != nil && m.Round != *round {
			continue
		}
		if status != nil && m.Status != *status {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeMatchRepo) ListByGroup(ctx context.Context, groupID int) ([]*models.Match, error) {
	out := make([]*models.Match, 0)
	for _, m := range f.matches {
		if m.GroupID != nil && *m.GroupID == groupID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMatchRepo) CountByStage(ctx context.Context, exec repositories.SQLExecutor, stageID int) (int, error) {
	count := 0
	for _, m := range f.matches {
		if m.StageID == stageID {
			count++
		}
	}
	return count, nil
}

func (f *fakeMatchRepo) CountByGroup(ctx context.Context, exec repositories.SQLExecutor, groupID int) (int, error) {
	count := 0
	for _, m := range f.matches {
		if m.GroupID != nil && *m.GroupID == groupID {
			count++
		}
	}
	return count, nil
}

func (f *fakeMatchRepo) UpdateResult(ctx context.Context, exec repositories.SQLExecutor, id int, score *string, status models.MatchStatus, winnerParticipantID *int, walkover bool) error {
	m, ok := f.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.Score = score
	m.Status = status
	m.WinnerParticipantID = winnerParticipantID
	m.Walkover = walkover
	f.updateResultCalls++
	return nil
}

func (f *fakeMatchRepo) UpdateStatus(ctx context.Context, id int, status models.MatchStatus) error {
	m, ok := f.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.Status = status
	return nil
}

func (f *fakeMatchRepo) Delete(ctx context.Context, id int) error {
	if _, ok := f.matches[id]; !ok {
		return repositories.ErrMatchNotFound
	}
	delete(f.matches, id)
	return nil
}

func (f *fakeMatchRepo) AddParticipant(ctx context.Context, exec repositories.SQLExecutor, mp *models.MatchParticipant) error {
	m, ok := f.matches[mp.MatchID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.Participants = append(m.Participants, *mp)
	return nil
}

func (f *fakeMatchRepo) SetParticipantWinner(ctx context.Context, exec repositories.SQLExecutor, matchID, participantID int, isWinner bool) error {
	m, ok := f.matches[matchID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	for i := range m.Participants {
		if m.Participants[i].ParticipantID == participantID {
			m.Participants[i].IsWinner = isWinner
			return nil
		}
	}
	return repositories.ErrMatchParticipantNotFound
}

func (f *fakeMatchRepo) ReplaceParticipantRefs(ctx context.Context, exec repositories.SQLExecutor, fromID, toID int) (int, error) {
	affected := 0
	for _, m := range f.matches {
		for i := range m.Participants {
			if m.Participants[i].ParticipantID == fromID {
				m.Participants[i].ParticipantID = toID
				m.Participants[i].Participant = nil
				affected++
			}
		}
	}
	f.replaceRefsCalls++
	return affected, nil
}

func (f *fakeMatchRepo) AttachParticipants(ctx context.Context, matches []*models.Match) error {
	return nil
}

type fakeBracketSlotRepo struct {
	slots  map[int]*models.BracketSlot
	nextID int
}

func newFakeBracketSlotRepo(slots ...*models.BracketSlot) *fakeBracketSlotRepo {
	f := &fakeBracketSlotRepo{slots: make(map[int]*models.BracketSlot), nextID: 3000}
	for _, s := range slots {
		f.slots[s.ID] = s
	}
	return f
}

func (f *fakeBracketSlotRepo) Create(ctx context.Context, exec repositories.SQLExecutor, slot *models.BracketSlot) error {
	f.nextID++
	slot.ID = f.nextID
	f.slots[slot.ID] = slot
	return nil
}

func (f *fakeBracketSlotRepo) ListByStage(ctx context.Context, stageID int, resolved *bool) ([]*models.BracketSlot, error) {
	out := make([]*models.BracketSlot, 0)
	for _, s := range f.slots {
		if s.StageID != stageID {
			continue
		}
		if resolved != nil && s.Resolved != *resolved {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeBracketSlotRepo) ListByStageForUpdate(ctx context.Context, exec repositories.SQLExecutor, stageID int, resolved *bool) ([]*models.BracketSlot, error) {
	return f.ListByStage(ctx, stageID, resolved)
}

func (f *fakeBracketSlotRepo) MarkResolved(ctx context.Context, exec repositories.SQLExecutor, id int, participantID int) error {
	s, ok := f.slots[id]
	if !ok {
		return repositories.ErrBracketSlotNotFound
	}
	s.Resolved = true
	pid := participantID
	s.ParticipantID = &pid
	return nil
}

func (f *fakeBracketSlotRepo) DeleteByStage(ctx context.Context, exec repositories.SQLExecutor, stageID int) error {
	for id, s := range f.slots {
		if s.StageID == stageID {
			delete(f.slots, id)
		}
	}
	return nil
}

type fakeStageRepo struct {
	stages map[int]*models.Stage
}

func newFakeStageRepo(stages ...*models.Stage) *fakeStageRepo {
	f := &fakeStageRepo{stages: make(map[int]*models.Stage)}
	for _, s := range stages {
		f.stages[s.ID] = s
	}
	return f
}

func (f *fakeStageRepo) Create(ctx context.Context, exec repositories.SQLExecutor, stage *models.Stage) error {
	stage.ID = len(f.stages) + 1
	f.stages[stage.ID] = stage
	return nil
}

func (f *fakeStageRepo) GetByID(ctx context.Context, id int) (*models.Stage, error) {
	s, ok := f.stages[id]
	if !ok {
		return nil, repositories.ErrStageNotFound
	}
	return s, nil
}

func (f *fakeStageRepo) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Stage, error) {
	out := make([]*models.Stage, 0)
	for _, s := range f.stages {
		if s.TournamentID == tournamentID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStageRepo) Update(ctx context.Context, stage *models.Stage) error {
	if _, ok := f.stages[stage.ID]; !ok {
		return repositories.ErrStageNotFound
	}
	f.stages[stage.ID] = stage
	return nil
}

func (f *fakeStageRepo) Delete(ctx context.Context, id int) error {
	delete(f.stages, id)
	return nil
}

func (f *fakeStageRepo) UpsertRule(ctx context.Context, exec repositories.SQLExecutor, rule *models.StageRule) error {
	return nil
}

func (f *fakeStageRepo) GetRule(ctx context.Context, stageID int) (*models.StageRule, error) {
	return nil, repositories.ErrStageRuleNotFound
}

func (f *fakeStageRepo) DeleteRule(ctx context.Context, stageID int) error {
	return nil
}

type fakeSnapshotStore struct {
	objects map[string][]byte
}

func newFakeSnapshotStore() *fakeSnapshotStore {
	return &fakeSnapshotStore{objects: make(map[string][]byte)}
}

func (f *fakeSnapshotStore) Put(ctx context.Context, key string, contentType string, body io.Reader) (*storage.PutResult, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(body); err != nil {
		return nil, err
	}
	f.objects[key] = buf.Bytes()
	return &storage.PutResult{Key: key, Location: f.PublicURL(key), ETag: "fake"}, nil
}

func (f *fakeSnapshotStore) Remove(ctx context.Context, key string) error {
	delete(f.objects, key)
	return nil
}

func (f *fakeSnapshotStore) PublicURL(key string) string {
	return "https://cdn.example.org/" + key
}
