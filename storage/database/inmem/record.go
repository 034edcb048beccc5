package inmemdb

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/rainbowkidsrealm/jaja2-sub000/core"
	"github.com/rainbowkidsrealm/jaja2-sub000/core/registry"
	"github.com/rainbowkidsrealm/jaja2-sub000/core/school"
)

var idKeys = []string{"id", "_id", "pk"}

type recordRepository struct {
	db *DB
}

var _ registry.Repository = (*recordRepository)(nil)

func NewRecordRepository(db *DB) registry.Repository {
	return &recordRepository{db: db}
}

func (repo *recordRepository) table(c registry.Collection) (*recordTable, error) {
	t, ok := repo.db.records[c]
	if !ok {
		return nil, errors.Errorf("unknown collection %q", c)
	}
	return t, nil
}

func (repo *recordRepository) ListRecords(c registry.Collection, filter registry.Filter) ([]school.Record, error) {
	t, err := repo.table(c)
	if err != nil {
		return nil, err
	}
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	search := strings.ToLower(core.CleanString(filter.Search))
	recs := make([]school.Record, 0, len(t.order))
	for _, id := range t.order {
		rec := t.table[id]
		if matches(rec, filter.Match) && (search == "" || contains(rec, search)) {
			recs = append(recs, clone(rec))
		}
	}
	if len(filter.Orderings) > 0 {
		sort.SliceStable(recs, func(i, j int) bool { return less(recs[i], recs[j], filter.Orderings) })
	}
	return recs, nil
}

func (repo *recordRepository) GetRecord(c registry.Collection, id string) (school.Record, error) {
	t, err := repo.table(c)
	if err != nil {
		return nil, err
	}
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	if rec, ok := t.table[id]; ok {
		return clone(rec), nil
	}
	return nil, registry.ErrNotFound
}

func (repo *recordRepository) CreateRecord(c registry.Collection, rec school.Record) (school.Record, error) {
	t, err := repo.table(c)
	if err != nil {
		return nil, err
	}
	id := rec.ID(idKeys...)
	if id == "" {
		return nil, errors.Wrapf(core.ErrNormalizationGap, "creating %s record", c)
	}

	t.mutex.Lock()
	defer t.mutex.Unlock()
	if _, exists := t.table[id]; exists {
		return nil, errors.Errorf("%s record %q already exists", c, id)
	}
	t.order = append(t.order, id)
	t.table[id] = clone(rec)
	return clone(rec), nil
}

func (repo *recordRepository) UpdateRecord(c registry.Collection, id string, rec school.Record) (school.Record, error) {
	t, err := repo.table(c)
	if err != nil {
		return nil, err
	}
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if _, ok := t.table[id]; !ok {
		return nil, registry.ErrNotFound
	}
	t.table[id] = clone(rec)
	return clone(rec), nil
}

func (repo *recordRepository) DeleteRecords(c registry.Collection, ids ...string) error {
	t, err := repo.table(c)
	if err != nil {
		return err
	}
	t.mutex.Lock()
	defer t.mutex.Unlock()

	for _, id := range ids {
		delete(t.table, id)
	}
	order := t.order[:0]
	for _, id := range t.order {
		if _, ok := t.table[id]; ok {
			order = append(order, id)
		}
	}
	t.order = order
	return nil
}

// clone copies the top level of the record; nested values are never mutated in place.
func clone(rec school.Record) school.Record {
	cp := make(school.Record, len(rec))
	for k, v := range rec {
		cp[k] = v
	}
	return cp
}

// matches compares each field under its snake_case and camelCase names, eg. class_id and classId.
func matches(rec school.Record, match map[string]string) bool {
	for field, want := range match {
		keys := []string{field, camelCase(field)}
		if rec.ID(keys...) != want && !strings.EqualFold(rec.String(keys...), want) {
			return false
		}
	}
	return true
}

func camelCase(field string) string {
	parts := strings.Split(field, "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}

func contains(rec school.Record, search string) bool {
	for _, v := range rec {
		if s, ok := v.(string); ok && strings.Contains(strings.ToLower(s), search) {
			return true
		}
	}
	return false
}

// less compares numerically when both values are numbers, as strings otherwise.
func less(a, b school.Record, orderings []core.DBOrdering) bool {
	for _, ord := range orderings {
		va, vb := a.String(ord.Field), b.String(ord.Field)
		if va == vb {
			continue
		}
		fa, errA := strconv.ParseFloat(va, 64)
		fb, errB := strconv.ParseFloat(vb, 64)
		var isLess bool
		if errA == nil && errB == nil {
			if fa == fb {
				continue
			}
			isLess = fa < fb
		} else {
			isLess = va < vb
		}
		if ord.Ascending {
			return isLess
		}
		return !isLess
	}
	return false
}
