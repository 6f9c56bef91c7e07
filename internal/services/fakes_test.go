package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/lms-service/internal/events"
	"github.com/SAP-F-2025/lms-service/internal/metrics"
	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
	"github.com/SAP-F-2025/lms-service/internal/validator"
)

// ===== CLOCK =====

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{now: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// ===== IN-MEMORY REPOSITORY =====

// memStore keeps every table behind one mutex. Each call is atomic, which is
// enough to emulate the database uniqueness guards.
type memStore struct {
	mu sync.Mutex

	nextID uint

	assessments map[uint]*models.Assessment
	links       map[uint][]uint
	questions   map[uint]*models.Question
	attempts    map[uint]*models.AssessmentAttempt
	answers     map[uint]map[uint]*models.AssessmentAnswer
	enrollments []models.Enrollment
	schedules   map[uint]*models.Schedule
	assignments []*models.ScheduleAssessment
	materials   map[uint]*models.TrainingMaterial

	materialCreateErr error

	inTx bool
	// invalidations records InvalidateCache calls; txInvalidations those made
	// while a transaction was open.
	invalidations   []uint
	txInvalidations []uint
}

func newMemStore() *memStore {
	return &memStore{
		assessments: map[uint]*models.Assessment{},
		links:       map[uint][]uint{},
		questions:   map[uint]*models.Question{},
		attempts:    map[uint]*models.AssessmentAttempt{},
		answers:     map[uint]map[uint]*models.AssessmentAnswer{},
		schedules:   map[uint]*models.Schedule{},
		materials:   map[uint]*models.TrainingMaterial{},
	}
}

func (s *memStore) id() uint {
	s.nextID++
	return s.nextID
}

type memRepo struct{ s *memStore }

func (r memRepo) Assessment() repositories.AssessmentRepository { return memAssessments{r.s} }
func (r memRepo) Question() repositories.QuestionRepository     { return memQuestions{r.s} }
func (r memRepo) Attempt() repositories.AttemptRepository       { return memAttempts{r.s} }
func (r memRepo) Answer() repositories.AnswerRepository         { return memAnswers{r.s} }
func (r memRepo) Enrollment() repositories.EnrollmentRepository { return memEnrollments{r.s} }
func (r memRepo) Schedule() repositories.ScheduleRepository     { return memSchedules{r.s} }
func (r memRepo) Material() repositories.MaterialRepository     { return memMaterials{r.s} }

func (r memRepo) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	r.s.mu.Lock()
	r.s.inTx = true
	r.s.mu.Unlock()
	defer func() {
		r.s.mu.Lock()
		r.s.inTx = false
		r.s.mu.Unlock()
	}()
	return fn(r)
}

func (r memRepo) Ping(ctx context.Context) error { return nil }
func (r memRepo) Close() error                   { return nil }

// ----- assessments -----

type memAssessments struct{ s *memStore }

func (m memAssessments) Create(ctx context.Context, a *models.Assessment) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	a.ID = m.s.id()
	cp := *a
	cp.Questions = nil
	m.s.assessments[a.ID] = &cp
	return nil
}

func (m memAssessments) GetByID(ctx context.Context, id uint) (*models.Assessment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	a, ok := m.s.assessments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	return &cp, nil
}

func (m memAssessments) Update(ctx context.Context, a *models.Assessment) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.assessments[a.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *a
	cp.Questions = nil
	m.s.assessments[a.ID] = &cp
	return nil
}

func (m memAssessments) Delete(ctx context.Context, id uint) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.assessments[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.s.assessments, id)
	delete(m.s.links, id)
	return nil
}

func (m memAssessments) GetWithQuestions(ctx context.Context, id uint) (*models.Assessment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	a, ok := m.s.assessments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	cp.Questions = nil
	for i, qid := range m.s.links[id] {
		q := copyQuestion(m.s.questions[qid])
		cp.Questions = append(cp.Questions, models.AssessmentQuestion{
			AssessmentID: id,
			QuestionID:   qid,
			Order:        i + 1,
			Question:     *q,
		})
	}
	cp.ComputeTotals()
	return &cp, nil
}

func (m memAssessments) ReplaceQuestions(ctx context.Context, assessmentID uint, questionIDs []uint) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.links[assessmentID] = append([]uint(nil), questionIDs...)
	return nil
}

func (m memAssessments) InvalidateCache(ctx context.Context, id uint) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.invalidations = append(m.s.invalidations, id)
	if m.s.inTx {
		m.s.txInvalidations = append(m.s.txInvalidations, id)
	}
}

func (m memAssessments) List(ctx context.Context, f repositories.AssessmentFilters) ([]*models.Assessment, int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*models.Assessment
	for _, a := range m.s.assessments {
		if f.CourseID != nil && a.CourseID != *f.CourseID {
			continue
		}
		if f.IsActive != nil && a.IsActive != *f.IsActive {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (m memAssessments) HasAttempts(ctx context.Context, id uint) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.s.hasAttemptsLocked(id), nil
}

func (s *memStore) hasAttemptsLocked(assessmentID uint) bool {
	for _, at := range s.attempts {
		if at.AssessmentID == assessmentID {
			return true
		}
	}
	return false
}

// ----- questions -----

type memQuestions struct{ s *memStore }

func copyQuestion(q *models.Question) *models.Question {
	cp := *q
	cp.Options = append([]models.QuestionOption(nil), q.Options...)
	return &cp
}

func (m memQuestions) Create(ctx context.Context, q *models.Question) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	q.ID = m.s.id()
	for i := range q.Options {
		q.Options[i].ID = m.s.id()
		q.Options[i].QuestionID = q.ID
	}
	m.s.questions[q.ID] = copyQuestion(q)
	return nil
}

func (m memQuestions) GetByID(ctx context.Context, id uint) (*models.Question, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	q, ok := m.s.questions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return copyQuestion(q), nil
}

func (m memQuestions) GetByIDs(ctx context.Context, ids []uint) ([]*models.Question, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*models.Question
	for _, id := range ids {
		if q, ok := m.s.questions[id]; ok {
			out = append(out, copyQuestion(q))
		}
	}
	return out, nil
}

func (m memQuestions) GetByCourse(ctx context.Context, courseID uint, f repositories.QuestionFilters) ([]*models.Question, int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var all []*models.Question
	for _, q := range m.s.questions {
		if q.CourseID != courseID {
			continue
		}
		if f.QuestionType != nil && q.QuestionType != *f.QuestionType {
			continue
		}
		if f.Difficulty != nil && q.Difficulty != *f.Difficulty {
			continue
		}
		all = append(all, copyQuestion(q))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := int64(len(all))
	if f.Offset >= len(all) {
		return []*models.Question{}, total, nil
	}
	all = all[f.Offset:]
	if f.Limit > 0 && len(all) > f.Limit {
		all = all[:f.Limit]
	}
	return all, total, nil
}

func (m memQuestions) Update(ctx context.Context, q *models.Question, replaceOptions bool) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.questions[q.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	if replaceOptions {
		for i := range q.Options {
			q.Options[i].ID = m.s.id()
			q.Options[i].QuestionID = q.ID
		}
	}
	m.s.questions[q.ID] = copyQuestion(q)
	return nil
}

func (m memQuestions) Delete(ctx context.Context, id uint) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.questions[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.s.questions, id)
	return nil
}

func (m memQuestions) IsUsedInAttemptedAssessment(ctx context.Context, id uint) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for assessmentID, qids := range m.s.links {
		for _, qid := range qids {
			if qid == id && m.s.hasAttemptsLocked(assessmentID) {
				return true, nil
			}
		}
	}
	return false, nil
}

// ----- attempts -----

type memAttempts struct{ s *memStore }

func copyAttempt(a *models.AssessmentAttempt) *models.AssessmentAttempt {
	cp := *a
	cp.Answers = nil
	return &cp
}

// Create emulates idx_single_active_attempt and idx_attempt_number.
func (m memAttempts) Create(ctx context.Context, a *models.AssessmentAttempt) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, at := range m.s.attempts {
		if at.AssessmentID != a.AssessmentID || at.TraineeID != a.TraineeID {
			continue
		}
		if at.Status == models.AttemptInProgress && a.Status == models.AttemptInProgress {
			return gorm.ErrDuplicatedKey
		}
		if at.AttemptNumber == a.AttemptNumber {
			return gorm.ErrDuplicatedKey
		}
	}
	a.ID = m.s.id()
	m.s.attempts[a.ID] = copyAttempt(a)
	return nil
}

func (m memAttempts) GetByID(ctx context.Context, id uint) (*models.AssessmentAttempt, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	a, ok := m.s.attempts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return copyAttempt(a), nil
}

func (m memAttempts) GetByIDWithAnswers(ctx context.Context, id uint) (*models.AssessmentAttempt, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	a, ok := m.s.attempts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := copyAttempt(a)
	for _, ans := range m.s.sortedAnswersLocked(id) {
		cp.Answers = append(cp.Answers, *ans)
	}
	return cp, nil
}

func (m memAttempts) GetActiveAttempt(ctx context.Context, traineeID string, assessmentID uint) (*models.AssessmentAttempt, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, at := range m.s.attempts {
		if at.TraineeID == traineeID && at.AssessmentID == assessmentID && at.Status == models.AttemptInProgress {
			return copyAttempt(at), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m memAttempts) CountAttempts(ctx context.Context, traineeID string, assessmentID uint, includeExpired bool) (int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	n := 0
	for _, at := range m.s.attempts {
		if at.TraineeID != traineeID || at.AssessmentID != assessmentID {
			continue
		}
		if !includeExpired && at.Status == models.AttemptExpired {
			continue
		}
		n++
	}
	return n, nil
}

func (m memAttempts) GetNextAttemptNumber(ctx context.Context, traineeID string, assessmentID uint) (int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	highest := 0
	for _, at := range m.s.attempts {
		if at.TraineeID == traineeID && at.AssessmentID == assessmentID && at.AttemptNumber > highest {
			highest = at.AttemptNumber
		}
	}
	return highest + 1, nil
}

func (m memAttempts) GetByTraineeAndAssessment(ctx context.Context, traineeID string, assessmentID uint) ([]*models.AssessmentAttempt, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*models.AssessmentAttempt
	for _, at := range m.s.attempts {
		if at.TraineeID == traineeID && at.AssessmentID == assessmentID {
			out = append(out, copyAttempt(at))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AttemptNumber > out[j].AttemptNumber })
	return out, nil
}

func (m memAttempts) GetSummaries(ctx context.Context, traineeID string, assessmentIDs []uint) (map[uint]*repositories.AttemptSummary, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	out := make(map[uint]*repositories.AttemptSummary, len(assessmentIDs))
	for _, id := range assessmentIDs {
		out[id] = &repositories.AttemptSummary{AssessmentID: id}
	}
	for _, at := range m.s.attempts {
		sum, ok := out[at.AssessmentID]
		if !ok || at.TraineeID != traineeID {
			continue
		}
		sum.AttemptsCount++
		switch at.Status {
		case models.AttemptInProgress:
			id := at.ID
			sum.ActiveAttemptID = &id
		case models.AttemptExpired:
			sum.ExpiredCount++
		}
		if at.Status.IsFinal() && at.Score != nil && (sum.BestScore == nil || *at.Score > *sum.BestScore) {
			best := *at.Score
			sum.BestScore = &best
		}
	}
	return out, nil
}

func (m memAttempts) List(ctx context.Context, f repositories.AttemptFilters) ([]*models.AssessmentAttempt, int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*models.AssessmentAttempt
	for _, at := range m.s.attempts {
		if len(f.AssessmentIDs) > 0 && !containsUint(f.AssessmentIDs, at.AssessmentID) {
			continue
		}
		if len(f.TraineeIDs) > 0 && !containsString(f.TraineeIDs, at.TraineeID) {
			continue
		}
		if f.Status != nil && at.Status != *f.Status {
			continue
		}
		out = append(out, copyAttempt(at))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.Before(out[j].StartedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, int64(len(out)), nil
}

func (m memAttempts) Finalize(ctx context.Context, id uint, fin repositories.AttemptFinalization) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	at, ok := m.s.attempts[id]
	if !ok || at.Status != models.AttemptInProgress {
		return false, nil
	}
	remaining, score, pct, passed := fin.TimeRemaining, fin.Score, fin.Percentage, fin.IsPassed
	at.Status = fin.Status
	at.SubmittedAt = fin.SubmittedAt
	at.TimeRemaining = &remaining
	at.Score = &score
	at.Percentage = &pct
	at.IsPassed = &passed
	return true, nil
}

func (m memAttempts) UpdateScore(ctx context.Context, id uint, score, percentage float64, passed bool) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	at, ok := m.s.attempts[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	at.Score = &score
	at.Percentage = &percentage
	at.IsPassed = &passed
	return nil
}

func (m memAttempts) UpdateTimeRemaining(ctx context.Context, id uint, seconds int) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	at, ok := m.s.attempts[id]
	if !ok || at.Status != models.AttemptInProgress {
		return false, nil
	}
	at.TimeRemaining = &seconds
	return true, nil
}

func (m memAttempts) GetLapsed(ctx context.Context, now time.Time, limit int) ([]*models.AssessmentAttempt, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*models.AssessmentAttempt
	for _, at := range m.s.attempts {
		a, ok := m.s.assessments[at.AssessmentID]
		if !ok || at.Status != models.AttemptInProgress || !at.IsExpired(a.TimeLimit, now) {
			continue
		}
		out = append(out, copyAttempt(at))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ----- answers -----

type memAnswers struct{ s *memStore }

func (s *memStore) sortedAnswersLocked(attemptID uint) []*models.AssessmentAnswer {
	var out []*models.AssessmentAnswer
	for _, a := range s.answers[attemptID] {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out
}

func (m memAnswers) Upsert(ctx context.Context, a *models.AssessmentAnswer) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	rows := m.s.answers[a.AttemptID]
	if rows == nil {
		rows = map[uint]*models.AssessmentAnswer{}
		m.s.answers[a.AttemptID] = rows
	}
	cp := *a
	cp.IsCorrect = nil
	cp.PointsEarned = nil
	cp.AnswerData = append(datatypes.JSON(nil), a.AnswerData...)
	if existing, ok := rows[a.QuestionID]; ok {
		cp.ID = existing.ID
	} else {
		cp.ID = m.s.id()
	}
	a.ID = cp.ID
	rows[a.QuestionID] = &cp
	return nil
}

func (m memAnswers) GetByAttempt(ctx context.Context, attemptID uint) ([]*models.AssessmentAnswer, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.s.sortedAnswersLocked(attemptID), nil
}

func (m memAnswers) GetByAttemptAndQuestion(ctx context.Context, attemptID, questionID uint) (*models.AssessmentAnswer, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	a, ok := m.s.answers[attemptID][questionID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	return &cp, nil
}

func (m memAnswers) ApplyGrades(ctx context.Context, attemptID uint, grades []repositories.AnswerGrade) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, g := range grades {
		a, ok := m.s.answers[attemptID][g.QuestionID]
		if !ok {
			continue
		}
		correct, points := g.IsCorrect, g.PointsEarned
		a.IsCorrect = &correct
		a.PointsEarned = &points
	}
	return nil
}

// ----- enrollments and schedules -----

type memEnrollments struct{ s *memStore }

func (m memEnrollments) IsEnrolledInCourse(ctx context.Context, traineeID string, courseID uint) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, e := range m.s.enrollments {
		if e.TraineeID == traineeID && e.CourseID == courseID && e.Status == models.EnrollmentActive {
			return true, nil
		}
	}
	return false, nil
}

func (m memEnrollments) IsEnrolledInSchedule(ctx context.Context, traineeID string, scheduleID uint) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, e := range m.s.enrollments {
		if e.TraineeID == traineeID && e.ScheduleID != nil && *e.ScheduleID == scheduleID && e.Status == models.EnrollmentActive {
			return true, nil
		}
	}
	return false, nil
}

func (m memEnrollments) GetTraineesBySchedule(ctx context.Context, scheduleID uint) ([]string, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, e := range m.s.enrollments {
		if e.ScheduleID != nil && *e.ScheduleID == scheduleID && e.Status == models.EnrollmentActive && !seen[e.TraineeID] {
			seen[e.TraineeID] = true
			out = append(out, e.TraineeID)
		}
	}
	sort.Strings(out)
	return out, nil
}

type memSchedules struct{ s *memStore }

func (m memSchedules) GetByID(ctx context.Context, id uint) (*models.Schedule, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	sch, ok := m.s.schedules[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *sch
	return &cp, nil
}

func (m memSchedules) CreateAssignment(ctx context.Context, a *models.ScheduleAssessment) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, existing := range m.s.assignments {
		if existing.ScheduleID == a.ScheduleID && existing.AssessmentID == a.AssessmentID {
			return gorm.ErrDuplicatedKey
		}
	}
	a.ID = m.s.id()
	cp := *a
	m.s.assignments = append(m.s.assignments, &cp)
	return nil
}

func (m memSchedules) GetAssignment(ctx context.Context, scheduleID, assessmentID uint) (*models.ScheduleAssessment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, a := range m.s.assignments {
		if a.ScheduleID == scheduleID && a.AssessmentID == assessmentID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m memSchedules) UpdateAssignment(ctx context.Context, a *models.ScheduleAssessment) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for i, existing := range m.s.assignments {
		if existing.ID == a.ID {
			cp := *a
			m.s.assignments[i] = &cp
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m memSchedules) GetAssignments(ctx context.Context, scheduleID uint, activeOnly bool) ([]*models.ScheduleAssessment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*models.ScheduleAssessment
	for _, a := range m.s.assignments {
		if a.ScheduleID != scheduleID || (activeOnly && !a.IsActive) {
			continue
		}
		cp := *a
		if assessment, ok := m.s.assessments[a.AssessmentID]; ok {
			header := *assessment
			cp.Assessment = &header
		}
		out = append(out, &cp)
	}
	return out, nil
}

// ----- materials -----

type memMaterials struct{ s *memStore }

func (m memMaterials) Create(ctx context.Context, mat *models.TrainingMaterial) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.materialCreateErr != nil {
		return m.s.materialCreateErr
	}
	mat.ID = m.s.id()
	cp := *mat
	m.s.materials[mat.ID] = &cp
	return nil
}

func (m memMaterials) GetByID(ctx context.Context, id uint) (*models.TrainingMaterial, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	mat, ok := m.s.materials[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *mat
	return &cp, nil
}

func (m memMaterials) Delete(ctx context.Context, id uint) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.materials[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.s.materials, id)
	return nil
}

func (m memMaterials) GetByCourse(ctx context.Context, courseID uint, f repositories.MaterialFilters) ([]*models.TrainingMaterial, int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var all []*models.TrainingMaterial
	for _, mat := range m.s.materials {
		if mat.CourseID == courseID {
			cp := *mat
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := int64(len(all))
	if f.Offset >= len(all) {
		return []*models.TrainingMaterial{}, total, nil
	}
	all = all[f.Offset:]
	if f.Limit > 0 && len(all) > f.Limit {
		all = all[:f.Limit]
	}
	return all, total, nil
}

func containsUint(list []uint, v uint) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func containsString(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// ===== FIXTURES =====

const (
	testCourseID   uint = 7
	testTrainee         = "trainee-1"
	otherTrainee        = "trainee-2"
	testInstructor      = "instructor-1"
	testTimeLimit       = 30
)

var testStart = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	store     *memStore
	repo      memRepo
	clock     *fakeClock
	publisher *events.MockEventPublisher
	metrics   *metrics.Metrics
	validator *validator.Validator
	logger    *slog.Logger
	attempts  AttemptService
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newMemStore()
	env := &testEnv{
		store:     store,
		repo:      memRepo{s: store},
		clock:     newFakeClock(testStart),
		metrics:   metrics.New(),
		validator: validator.New(),
		logger:    discardLogger(),
	}
	env.publisher = events.NewMockEventPublisher(env.logger)
	env.attempts = env.newAttemptService(true)
	return env
}

func (e *testEnv) newAttemptService(quotaCountsExpired bool) AttemptService {
	return NewAttemptService(e.repo, e.logger, e.validator, AttemptServiceOptions{
		Publisher:          e.publisher,
		Metrics:            e.metrics,
		Clock:              e.clock,
		QuotaCountsExpired: quotaCountsExpired,
	})
}

func (e *testEnv) enroll(traineeID string, courseID uint, scheduleID *uint) {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	e.store.enrollments = append(e.store.enrollments, models.Enrollment{
		ID:         e.store.id(),
		TraineeID:  traineeID,
		CourseID:   courseID,
		ScheduleID: scheduleID,
		Status:     models.EnrollmentActive,
	})
}

// seededAssessment holds the ids of the standard three question fixture.
type seededAssessment struct {
	id uint

	mcID      uint
	mcCorrect uint
	mcWrong   uint

	cbID      uint
	cbCorrect []uint
	cbWrong   uint

	idID uint
}

// seedAssessment creates an assessment worth 6 points: multiple choice (3),
// checkbox (2) and identification (1) answered by "Paris".
func (e *testEnv) seedAssessment(t *testing.T, maxAttempts int, passing float64) seededAssessment {
	t.Helper()
	ctx := context.Background()
	questions := memQuestions{e.store}

	paris := "Paris"
	mc := &models.Question{CourseID: testCourseID, QuestionText: "2+2?", QuestionType: models.MultipleChoice, Points: 3,
		Options: []models.QuestionOption{{Text: "4", IsCorrect: true, Order: 1}, {Text: "5", Order: 2}}}
	cb := &models.Question{CourseID: testCourseID, QuestionText: "Primes?", QuestionType: models.Checkbox, Points: 2,
		Options: []models.QuestionOption{{Text: "2", IsCorrect: true, Order: 1}, {Text: "3", IsCorrect: true, Order: 2}, {Text: "4", Order: 3}}}
	ident := &models.Question{CourseID: testCourseID, QuestionText: "Capital of France?", QuestionType: models.Identification, Points: 1,
		CorrectAnswer: &paris}

	for _, q := range []*models.Question{mc, cb, ident} {
		if err := questions.Create(ctx, q); err != nil {
			t.Fatalf("seed question: %v", err)
		}
	}

	a := &models.Assessment{
		CourseID:     testCourseID,
		Title:        "Fundamentals",
		TimeLimit:    testTimeLimit,
		MaxAttempts:  maxAttempts,
		PassingScore: passing,
		IsActive:     true,
		CreatedBy:    testInstructor,
	}
	assessments := memAssessments{e.store}
	if err := assessments.Create(ctx, a); err != nil {
		t.Fatalf("seed assessment: %v", err)
	}
	if err := assessments.ReplaceQuestions(ctx, a.ID, []uint{mc.ID, cb.ID, ident.ID}); err != nil {
		t.Fatalf("seed links: %v", err)
	}

	return seededAssessment{
		id:        a.ID,
		mcID:      mc.ID,
		mcCorrect: mc.Options[0].ID,
		mcWrong:   mc.Options[1].ID,
		cbID:      cb.ID,
		cbCorrect: []uint{cb.Options[0].ID, cb.Options[1].ID},
		cbWrong:   cb.Options[2].ID,
		idID:      ident.ID,
	}
}

func (e *testEnv) setRandomized(t *testing.T, assessmentID uint) {
	t.Helper()
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	e.store.assessments[assessmentID].RandomizeQuestions = true
}

func (e *testEnv) storedAttempt(t *testing.T, id uint) *models.AssessmentAttempt {
	t.Helper()
	at, err := memAttempts{e.store}.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("load attempt %d: %v", id, err)
	}
	return at
}

func answerReq(raw string) *SaveAnswerRequest {
	return &SaveAnswerRequest{Answer: []byte(raw)}
}

func assertErrorIs(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("error = %v, want %v", err, target)
	}
}
