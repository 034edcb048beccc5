package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/pkg/errors"

	"github.com/rainbowkidsrealm/jaja2-sub000/core/registry"
	"github.com/rainbowkidsrealm/jaja2-sub000/core/school"
	inmemdb "github.com/rainbowkidsrealm/jaja2-sub000/storage/database/inmem"
)

var errFixtureGaps = errors.New("some records cannot be shown by the portal")

// normalizer reports how many of recs normalize and the gaps met on the others.
type normalizer func(recs []school.Record) (int, []*school.GapError, error)

func normalizerOf[T any](normalize func(school.Record) (T, error)) normalizer {
	return func(recs []school.Record) (int, []*school.GapError, error) {
		items, gaps, err := school.NormalizeAll(recs, normalize, school.SkipGaps)
		return len(items), gaps, err
	}
}

var normalizers = map[registry.Collection]normalizer{
	registry.Students:   normalizerOf(school.NormalizeStudent),
	registry.Teachers:   normalizerOf(school.NormalizeTeacher),
	registry.Parents:    normalizerOf(school.NormalizeParent),
	registry.Classes:    normalizerOf(school.NormalizeClass),
	registry.Subjects:   normalizerOf(school.NormalizeSubject),
	registry.Marks:      normalizerOf(school.NormalizeMark),
	registry.Attendance: normalizerOf(school.NormalizeAttendance),
	registry.Homework:   normalizerOf(school.NormalizeHomework),
	registry.Messages:   normalizerOf(school.NormalizeMessage),
}

// checkFixtures normalizes every seeded collection the way the portal does and reports the gaps.
func (cli *commandLine) checkFixtures(dir string, strict bool) error {
	db, err := openFixtures(dir)
	if err != nil {
		return err
	}
	repo := inmemdb.NewRecordRepository(db)

	var (
		allGaps []*school.GapError
		w       = tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', tabwriter.AlignRight)
	)
	fmt.Fprintln(w, "COLLECTION\tRECORDS\tUSABLE\tGAPS\t")
	for _, c := range registry.Collections {
		recs, err := repo.ListRecords(c, registry.Filter{})
		if err != nil {
			return errors.Wrapf(err, "listing %s", c)
		}
		usable, gaps, err := normalizers[c](recs)
		if err != nil {
			return errors.Wrapf(err, "normalizing %s", c)
		}
		allGaps = append(allGaps, gaps...)
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t\n", c, len(recs), usable, len(gaps))
	}
	if err = w.Flush(); err != nil {
		return err
	}

	for _, g := range allGaps {
		fmt.Fprintf(cli.out, "gap: %s\n", g)
	}
	if strict && len(allGaps) > 0 {
		return errors.Wrapf(errFixtureGaps, "%d gaps", len(allGaps))
	}
	return nil
}
