package dummydb

import (
	"sync"

	"github.com/google/uuid"

	"github.com/ceresdev/academico/core/academic"
	"github.com/ceresdev/academico/core/user"
)

type (
	DB struct {
		user     *userTable
		group    *groupTable
		academic *academicTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	groupTable struct {
		sync.RWMutex
		table      map[string]*user.Group    // by name
		membership map[string]map[string]bool // user ID -> group names
	}

	periodRow struct {
		period academic.Period
		status string
	}

	gridRow struct {
		siape     string
		matricula string
		period    academic.Period
		entry     academic.ScheduleEntry
	}

	academicTable struct {
		sync.RWMutex
		teachers    map[string]*academic.Teacher // by siape
		students    map[string]*academic.Student // by matricula
		functions   []academic.AppointedFunction
		periods     []periodRow
		courses     map[string]academic.Course // by code
		components  []academic.CurriculumComponent
		grid        []gridRow
		requests    []academic.ChangeRequest
		transcripts []academic.TranscriptEntry
	}
)

func Open() (*DB, error) {
	db := &DB{
		user: &userTable{table: make(map[string]*user.User)},
		group: &groupTable{
			table:      make(map[string]*user.Group),
			membership: make(map[string]map[string]bool),
		},
		academic: &academicTable{
			teachers: make(map[string]*academic.Teacher),
			students: make(map[string]*academic.Student),
			courses:  make(map[string]academic.Course),
		},
	}
	for _, name := range user.AllGroups {
		db.group.table[name] = &user.Group{ID: uuid.New().String(), Name: name}
	}
	return db, nil
}

// Seed helpers load registry data the way imports would.

func (db *DB) AddTeacher(t academic.Teacher) academic.Teacher {
	db.academic.Lock()
	defer db.academic.Unlock()
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	db.academic.teachers[t.Siape] = &t
	return t
}

func (db *DB) AddStudent(s academic.Student) academic.Student {
	db.academic.Lock()
	defer db.academic.Unlock()
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	db.academic.students[s.Matricula] = &s
	return s
}

func (db *DB) AddFunction(fn academic.AppointedFunction) academic.AppointedFunction {
	db.academic.Lock()
	defer db.academic.Unlock()
	if fn.ID == "" {
		fn.ID = uuid.New().String()
	}
	db.academic.functions = append(db.academic.functions, fn)
	return fn
}

func (db *DB) AddPeriod(p academic.Period, status string) {
	db.academic.Lock()
	defer db.academic.Unlock()
	db.academic.periods = append(db.academic.periods, periodRow{period: p, status: status})
}

func (db *DB) AddCourse(c academic.Course) academic.Course {
	db.academic.Lock()
	defer db.academic.Unlock()
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	db.academic.courses[c.Code] = c
	return c
}

func (db *DB) AddComponent(c academic.CurriculumComponent) academic.CurriculumComponent {
	db.academic.Lock()
	defer db.academic.Unlock()
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	db.academic.components = append(db.academic.components, c)
	return c
}

func (db *DB) AddStudentEntry(matricula string, p academic.Period, entry academic.ScheduleEntry) {
	db.academic.Lock()
	defer db.academic.Unlock()
	db.academic.grid = append(db.academic.grid, gridRow{matricula: matricula, period: p, entry: entry})
}

func (db *DB) AddTeacherEntry(siape string, p academic.Period, entry academic.ScheduleEntry) {
	db.academic.Lock()
	defer db.academic.Unlock()
	db.academic.grid = append(db.academic.grid, gridRow{siape: siape, period: p, entry: entry})
}

func (db *DB) AddRequest(req academic.ChangeRequest) academic.ChangeRequest {
	db.academic.Lock()
	defer db.academic.Unlock()
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	db.academic.requests = append(db.academic.requests, req)
	return req
}

func (db *DB) AddTranscriptEntry(entry academic.TranscriptEntry) academic.TranscriptEntry {
	db.academic.Lock()
	defer db.academic.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	db.academic.transcripts = append(db.academic.transcripts, entry)
	return entry
}
