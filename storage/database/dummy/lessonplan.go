package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/sundayschool/core"
	"github.com/trezcool/sundayschool/core/lessonplan"
)

type lessonPlanRepository struct {
	db *DB
}

var _ lessonplan.Repository = (*lessonPlanRepository)(nil) // interface compliance check

func NewLessonPlanRepository(db *DB) *lessonPlanRepository {
	return &lessonPlanRepository{db: db}
}

var lessonPlanFields = map[string]func(a, b lessonplan.LessonPlan) int{
	"id":         func(a, b lessonplan.LessonPlan) int { return a.ID - b.ID },
	"title":      func(a, b lessonplan.LessonPlan) int { return strings.Compare(a.Title, b.Title) },
	"status":     func(a, b lessonplan.LessonPlan) int { return strings.Compare(a.Status, b.Status) },
	"duration":   func(a, b lessonplan.LessonPlan) int { return a.Duration - b.Duration },
	"created_at": func(a, b lessonplan.LessonPlan) int { return a.CreatedAt.Compare(b.CreatedAt) },
	"updated_at": func(a, b lessonplan.LessonPlan) int { return a.UpdatedAt.Compare(b.UpdatedAt) },
}

func (repo *lessonPlanRepository) CreateLessonPlan(_ context.Context, lp lessonplan.LessonPlan, _ ...core.DBExecutor) (lessonplan.LessonPlan, error) {
	repo.db.lessonPlan.Lock()
	defer repo.db.lessonPlan.Unlock()

	lp.ID = repo.db.lessonPlan.nextID()
	lp.Materials = nil
	repo.db.lessonPlan.rows[lp.ID] = lp
	return lp, nil
}

func (repo *lessonPlanRepository) QueryLessonPlans(_ context.Context, filter *lessonplan.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]lessonplan.LessonPlan, error) {
	plans := repo.db.lessonPlan.snapshot()

	if filter != nil {
		if filter.ClassID != 0 {
			plans = filterRows(plans, func(lp lessonplan.LessonPlan) bool { return lp.ClassID == filter.ClassID })
		}
		if filter.Status != "" {
			plans = filterRows(plans, func(lp lessonplan.LessonPlan) bool { return lp.Status == filter.Status })
		}
	}

	sortRows(plans, ordering, lessonPlanFields)
	return plans, nil
}

func (repo *lessonPlanRepository) GetLessonPlanByID(_ context.Context, id int, _ ...core.DBExecutor) (lessonplan.LessonPlan, error) {
	if lp, ok := repo.db.lessonPlan.get(id); ok {
		return lp, nil
	}
	return lessonplan.LessonPlan{}, lessonplan.ErrNotFound
}

func (repo *lessonPlanRepository) UpdateLessonPlan(_ context.Context, lp lessonplan.LessonPlan, _ ...core.DBExecutor) (lessonplan.LessonPlan, error) {
	repo.db.lessonPlan.Lock()
	defer repo.db.lessonPlan.Unlock()

	if _, ok := repo.db.lessonPlan.rows[lp.ID]; !ok {
		return lessonplan.LessonPlan{}, lessonplan.ErrNotFound
	}
	lp.Materials = nil
	repo.db.lessonPlan.rows[lp.ID] = lp
	return lp, nil
}

func (repo *lessonPlanRepository) DeleteLessonPlan(_ context.Context, id int, _ ...core.DBExecutor) error {
	repo.db.lessonPlan.Lock()
	if _, ok := repo.db.lessonPlan.rows[id]; !ok {
		repo.db.lessonPlan.Unlock()
		return lessonplan.ErrNotFound
	}
	delete(repo.db.lessonPlan.rows, id)
	repo.db.lessonPlan.Unlock()

	repo.db.cascadeLessonPlan(id)
	return nil
}

func (repo *lessonPlanRepository) QueryMaterials(_ context.Context, lessonID int, _ ...core.DBExecutor) ([]lessonplan.Material, error) {
	materials := filterRows(repo.db.material.snapshot(), func(m lessonplan.Material) bool { return m.LessonID == lessonID })
	sort.SliceStable(materials, func(i, j int) bool { return materials[i].SortOrder < materials[j].SortOrder })
	return materials, nil
}

func (repo *lessonPlanRepository) NextSortOrder(_ context.Context, lessonID int, _ ...core.DBExecutor) (int, error) {
	repo.db.material.RLock()
	defer repo.db.material.RUnlock()

	next := 0
	for _, m := range repo.db.material.rows {
		if m.LessonID == lessonID && m.SortOrder >= next {
			next = m.SortOrder + 1
		}
	}
	return next, nil
}

func (repo *lessonPlanRepository) CreateMaterial(_ context.Context, m lessonplan.Material, _ ...core.DBExecutor) (lessonplan.Material, error) {
	repo.db.material.Lock()
	defer repo.db.material.Unlock()

	m.ID = repo.db.material.nextID()
	repo.db.material.rows[m.ID] = m
	return m, nil
}
