// Package registry is the record keeping service behind the reference API:
// it stores the school collections as raw records and validates what gets written to them.
package registry

import (
	"encoding/json"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/rainbowkidsrealm/jaja2-sub000/core"
	"github.com/rainbowkidsrealm/jaja2-sub000/core/access"
	"github.com/rainbowkidsrealm/jaja2-sub000/core/school"
	"github.com/rainbowkidsrealm/jaja2-sub000/core/user"
)

type Collection string

// Collections
const (
	Students   Collection = "students"
	Teachers   Collection = "teachers"
	Parents    Collection = "parents"
	Classes    Collection = "classes"
	Subjects   Collection = "subjects"
	Marks      Collection = "marks"
	Attendance Collection = "attendance"
	Homework   Collection = "homework"
	Messages   Collection = "messages"
)

var (
	Collections = []Collection{Students, Teachers, Parents, Classes, Subjects, Marks, Attendance, Homework, Messages}

	// errors
	ErrNotFound          = errors.New("record not found")
	errUnknownCollection = errors.New("unknown collection")
)

func ParseCollection(s string) (Collection, bool) {
	for _, c := range Collections {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// Target is the role-gated route serving the collection.
func (c Collection) Target() access.Target { return access.Target("/" + string(c)) }

// Form is an input form of a collection.
type Form interface {
	Validate(validate *validator.Validate) error
}

// NewForm returns an empty input form for the collection.
func NewForm(c Collection) (Form, error) {
	switch c {
	case Students:
		return new(school.NewStudent), nil
	case Teachers:
		return new(school.NewTeacher), nil
	case Parents:
		return new(school.NewParent), nil
	case Classes:
		return new(school.NewClass), nil
	case Subjects:
		return new(school.NewSubject), nil
	case Marks:
		return new(school.NewMark), nil
	case Attendance:
		return new(school.NewAttendance), nil
	case Homework:
		return new(school.NewHomework), nil
	case Messages:
		return new(school.NewMessage), nil
	default:
		return nil, errors.Wrap(errUnknownCollection, string(c))
	}
}

type (
	// Filter applies AND operation on its fields.
	Filter struct {
		// Search does a case-insensitive match on any top level string field.
		Search string
		// Match keeps the records whose field equals the value, eg. {"class_id": "c-1"}.
		Match     map[string]string
		Orderings []core.DBOrdering
	}

	Repository interface {
		ListRecords(c Collection, filter Filter) ([]school.Record, error)
		GetRecord(c Collection, id string) (school.Record, error)
		// CreateRecord stores a record carrying its "id".
		CreateRecord(c Collection, rec school.Record) (school.Record, error)
		UpdateRecord(c Collection, id string, rec school.Record) (school.Record, error)
		DeleteRecords(c Collection, ids ...string) error
	}

	Service struct {
		repo   Repository
		users  *user.Service
		mailer core.EmailService
	}
)

func NewService(repo Repository, users *user.Service, mailer core.EmailService) *Service {
	return &Service{repo: repo, users: users, mailer: mailer}
}

func (svc *Service) List(c Collection, filter Filter) ([]school.Record, error) {
	return svc.repo.ListRecords(c, filter)
}

func (svc *Service) Get(c Collection, id string) (school.Record, error) {
	return svc.repo.GetRecord(c, id)
}

// Create validates the form and stores it as a new record authored by author.
// Messages are sent with SendMessage.
func (svc *Service) Create(c Collection, form Form, author user.User) (school.Record, error) {
	if c == Messages {
		if msg, ok := form.(*school.NewMessage); ok {
			return svc.SendMessage(author, *msg)
		}
	}
	rec, err := toRecord(form)
	if err != nil {
		return nil, err
	}
	if err = svc.checkRefs(c, rec); err != nil {
		return nil, err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	id := newID()
	rec["id"] = id
	rec["created_at"] = now
	rec["updated_at"] = now

	switch c {
	case Classes:
		if rec["sections"], err = withSectionIDs(rec, id, nil); err != nil {
			return nil, err
		}
	case Marks, Attendance:
		rec["marked_by"] = author.ID
	case Homework:
		rec["assigned_date"] = now[:len(school.DateLayout)]
		rec["submissions"] = []interface{}{}
	}

	created, err := svc.repo.CreateRecord(c, rec)
	return created, errors.Wrapf(err, "creating %s record", c)
}

// Update validates the form and overwrites the record fields it sets.
func (svc *Service) Update(c Collection, id string, form Form) (school.Record, error) {
	existing, err := svc.repo.GetRecord(c, id)
	if err != nil {
		return nil, err
	}
	rec, err := toRecord(form)
	if err != nil {
		return nil, err
	}
	if err = svc.checkRefs(c, rec); err != nil {
		return nil, err
	}

	merged := make(school.Record, len(existing)+len(rec))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range rec {
		merged[k] = v
	}
	if c == Classes {
		prev := existing.List("sections", "class_sections", "classSections")
		if merged["sections"], err = withSectionIDs(rec, existing.ID("id", "_id", "pk"), prev); err != nil {
			return nil, err
		}
	}
	merged["updated_at"] = time.Now().UTC().Format(time.RFC3339)

	updated, err := svc.repo.UpdateRecord(c, id, merged)
	return updated, errors.Wrapf(err, "updating %s record", c)
}

func (svc *Service) Delete(c Collection, ids ...string) error {
	return svc.repo.DeleteRecords(c, ids...)
}

// Inbox returns the messages sent or received by usr.
func (svc *Service) Inbox(usr user.User, filter Filter) ([]school.Record, error) {
	recs, err := svc.repo.ListRecords(Messages, filter)
	if err != nil {
		return nil, errors.Wrap(err, "listing messages")
	}
	inbox := make([]school.Record, 0, len(recs))
	for _, rec := range recs {
		msg, err := school.NormalizeMessage(rec)
		if err != nil {
			continue
		}
		if msg.Sender.ID == usr.ID || msg.Recipient.ID == usr.ID {
			inbox = append(inbox, rec)
		}
	}
	return inbox, nil
}

// SendMessage stores the message and emails its recipient.
func (svc *Service) SendMessage(sender user.User, form school.NewMessage) (school.Record, error) {
	recipient, err := svc.users.GetByID(form.RecipientID)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return nil, core.NewValidationError(nil, core.FieldError{Field: "recipient_id", Error: "unknown recipient"})
		}
		return nil, errors.Wrap(err, "finding recipient")
	}

	id := newID()
	rec := school.Record{
		"id":             id,
		"sender_id":      sender.ID,
		"sender_name":    sender.Name,
		"recipient_id":   recipient.ID,
		"recipient_name": recipient.Name,
		"subject":        form.Subject,
		"body":           form.Body,
		"sent_at":        time.Now().UTC().Format(time.RFC3339),
		"read":           false,
	}
	created, err := svc.repo.CreateRecord(Messages, rec)
	if err != nil {
		return nil, errors.Wrap(err, "creating message")
	}

	svc.mailer.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: recipient.Name, Address: recipient.Email}},
		Subject:      fmt.Sprintf("New message from %s: %s", sender.Name, form.Subject),
		Metadata:     map[string]string{"message_id": id},
		TemplateName: "message",
		TemplateData: map[string]string{
			"RecipientName": recipient.Name,
			"SenderName":    sender.Name,
			"Subject":       form.Subject,
			"Body":          form.Body,
			"MessageID":     id,
		},
	})
	return created, nil
}

// references of each collection: form field -> referenced collection
var references = map[Collection][]struct {
	field string
	to    Collection
}{
	Students:   {{"class_id", Classes}, {"parent_id", Parents}},
	Parents:    {},
	Subjects:   {{"class_id", Classes}},
	Marks:      {{"student_id", Students}, {"subject_id", Subjects}, {"class_id", Classes}},
	Attendance: {{"student_id", Students}, {"class_id", Classes}},
	Homework:   {{"class_id", Classes}, {"subject_id", Subjects}},
}

// checkRefs reports every referenced record that does not exist.
func (svc *Service) checkRefs(c Collection, rec school.Record) error {
	var fldErrs []core.FieldError
	for _, ref := range references[c] {
		id := rec.ID(ref.field)
		if id == "" {
			continue
		}
		if _, err := svc.repo.GetRecord(ref.to, id); err != nil {
			if errors.Cause(err) != ErrNotFound {
				return errors.Wrapf(err, "checking %s %s", ref.to, id)
			}
			fldErrs = append(fldErrs, core.FieldError{Field: ref.field, Error: fmt.Sprintf("unknown %s", singular(ref.to))})
		}
	}
	if c == Parents {
		for i, child := range rec.List("children") {
			id := child.ID("id")
			if _, err := svc.repo.GetRecord(Students, id); err != nil {
				if errors.Cause(err) != ErrNotFound {
					return errors.Wrapf(err, "checking student %s", id)
				}
				fldErrs = append(fldErrs, core.FieldError{Field: fmt.Sprintf("children[%d]", i), Error: "unknown student"})
			}
		}
	}
	if len(fldErrs) > 0 {
		return core.NewValidationError(nil, fldErrs...)
	}
	return nil
}

func singular(c Collection) string {
	switch c {
	case Classes:
		return "class"
	case Attendance, Homework:
		return string(c)
	default:
		return string(c[:len(c)-1])
	}
}

func newID() string { return uuid.New().String() }

// toRecord turns a validated form into a record keyed by its JSON names.
func toRecord(form Form) (school.Record, error) {
	data, err := json.Marshal(form)
	if err != nil {
		return nil, errors.Wrap(err, "encoding form")
	}
	v, err := school.Decode(data)
	if err != nil {
		return nil, errors.Wrap(err, "decoding form")
	}
	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil, errors.Errorf("form %T is not an object", form)
	}
	return obj, nil
}

// withSectionIDs gives every section of a class form an id and the class id.
// A section keeps the id of the previous section it names by id, or else by name;
// only sections matching none of prev get a new id.
func withSectionIDs(rec school.Record, classID string, prev []school.Record) ([]interface{}, error) {
	byID := make(map[string]bool, len(prev))
	byName := make(map[string]string, len(prev))
	for _, p := range prev {
		id := p.ID("id", "_id", "pk")
		if id == "" {
			continue
		}
		byID[id] = true
		if name := strings.ToLower(p.String("name", "sectionName", "section_name")); name != "" {
			if _, dup := byName[name]; !dup {
				byName[name] = id
			}
		}
	}

	recs := rec.List("sections")
	taken := make(map[string]bool, len(recs))
	sections := make([]interface{}, 0, len(recs))
	var fErrs []core.FieldError
	for i, sr := range recs {
		section := make(map[string]interface{}, len(sr)+2)
		for k, v := range sr {
			section[k] = v
		}

		id := sr.ID("id")
		switch {
		case id != "" && !byID[id]:
			fErrs = append(fErrs, core.FieldError{Field: fmt.Sprintf("sections[%d].id", i), Error: "unknown section"})
		case id != "" && taken[id]:
			fErrs = append(fErrs, core.FieldError{Field: fmt.Sprintf("sections[%d].id", i), Error: "duplicate section"})
		case id == "":
			if prevID, ok := byName[strings.ToLower(sr.String("name"))]; ok && !taken[prevID] {
				id = prevID
			} else {
				id = newID()
			}
		}
		taken[id] = true
		section["id"] = id
		section["class_id"] = classID
		sections = append(sections, section)
	}
	if len(fErrs) > 0 {
		return nil, core.NewValidationError(nil, fErrs...)
	}
	return sections, nil
}
