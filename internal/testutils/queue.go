package testutils

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// Job states as reported by stats-job.
const (
	stateReady    = "ready"
	stateDelayed  = "delayed"
	stateReserved = "reserved"
	stateBuried   = "buried"
)

type fakeJob struct {
	id       uint64
	tube     string
	priority uint64
	delay    uint64
	ttr      uint64
	body     []byte
	state    string
	owner    int // session holding the reservation
}

// FakeQueue is an in-memory job queue answering beanstalk commands, for use as
// a Server handler.
//
// Delays and time-to-run never elapse: delayed jobs only become ready when
// kicked. Reserve never blocks and answers TIMED_OUT when no job is ready.
type FakeQueue struct {
	mu     sync.Mutex
	jobs   map[uint64]*fakeJob
	tubes  map[string]uint64 // pause delay per known tube
	lastID uint64
}

func NewFakeQueue() *FakeQueue {
	return &FakeQueue{
		jobs:  make(map[uint64]*fakeJob),
		tubes: map[string]uint64{"default": 0},
	}
}

// Handler returns the queue as a Server handler.
func (q *FakeQueue) Handler() HandlerFunc {
	return q.Handle
}

// Handle answers one command for a session.
func (q *FakeQueue) Handle(s *Session, cmd Command) string {
	q.mu.Lock()
	defer q.mu.Unlock()

	switch cmd.Name {
	case "put":
		return q.put(s, cmd)
	case "reserve", "reserve-with-timeout":
		return q.reserve(s)
	case "delete":
		return q.withJob(cmd, func(j *fakeJob) string {
			if j.state == stateReserved && j.owner != s.ID {
				return "NOT_FOUND\r\n"
			}
			delete(q.jobs, j.id)
			return "DELETED\r\n"
		})
	case "release":
		return q.withReservedJob(s, cmd, func(j *fakeJob) string {
			j.priority = argUint(cmd, 1)
			j.delay = argUint(cmd, 2)
			j.state = stateReady
			if j.delay > 0 {
				j.state = stateDelayed
			}
			return "RELEASED\r\n"
		})
	case "bury":
		return q.withReservedJob(s, cmd, func(j *fakeJob) string {
			j.priority = argUint(cmd, 1)
			j.state = stateBuried
			return "BURIED\r\n"
		})
	case "touch":
		return q.withReservedJob(s, cmd, func(*fakeJob) string {
			return "TOUCHED\r\n"
		})
	case "kick":
		return q.kick(s, argUint(cmd, 0))
	case "peek":
		return q.withJob(cmd, found)
	case "peek-ready":
		return q.peekState(s, stateReady)
	case "peek-delayed":
		return q.peekState(s, stateDelayed)
	case "peek-buried":
		return q.peekState(s, stateBuried)
	case "use":
		s.Tube = arg(cmd, 0)
		q.touchTube(s.Tube)
		return "USING " + s.Tube + "\r\n"
	case "watch":
		name := arg(cmd, 0)
		if !slices.Contains(s.Watched, name) {
			s.Watched = append(s.Watched, name)
		}
		q.touchTube(name)
		return fmt.Sprintf("WATCHING %d\r\n", len(s.Watched))
	case "ignore":
		name := arg(cmd, 0)
		if len(s.Watched) == 1 && s.Watched[0] == name {
			return "NOT_IGNORED\r\n"
		}
		s.Watched = slices.DeleteFunc(s.Watched, func(w string) bool { return w == name })
		return fmt.Sprintf("WATCHING %d\r\n", len(s.Watched))
	case "list-tubes":
		names := make([]string, 0, len(q.tubes))
		for name := range q.tubes {
			names = append(names, name)
		}
		slices.Sort(names)
		return listResponse(names)
	case "list-tubes-watched":
		return listResponse(s.Watched)
	case "stats":
		return dictResponse([][2]string{
			{"current-jobs-ready", strconv.Itoa(q.count("", stateReady))},
			{"current-jobs-reserved", strconv.Itoa(q.count("", stateReserved))},
			{"current-jobs-delayed", strconv.Itoa(q.count("", stateDelayed))},
			{"current-jobs-buried", strconv.Itoa(q.count("", stateBuried))},
			{"total-jobs", strconv.FormatUint(q.lastID, 10)},
			{"current-tubes", strconv.Itoa(len(q.tubes))},
			{"version", "1.13"},
			{"rusage-utime", "0.012345"},
		})
	case "stats-tube":
		name := arg(cmd, 0)
		pause, ok := q.tubes[name]
		if !ok {
			return "NOT_FOUND\r\n"
		}
		return dictResponse([][2]string{
			{"name", name},
			{"current-jobs-ready", strconv.Itoa(q.count(name, stateReady))},
			{"current-jobs-reserved", strconv.Itoa(q.count(name, stateReserved))},
			{"current-jobs-delayed", strconv.Itoa(q.count(name, stateDelayed))},
			{"current-jobs-buried", strconv.Itoa(q.count(name, stateBuried))},
			{"pause", strconv.FormatUint(pause, 10)},
		})
	case "stats-job":
		return q.withJob(cmd, func(j *fakeJob) string {
			return dictResponse([][2]string{
				{"id", strconv.FormatUint(j.id, 10)},
				{"tube", j.tube},
				{"state", j.state},
				{"pri", strconv.FormatUint(j.priority, 10)},
				{"delay", strconv.FormatUint(j.delay, 10)},
				{"ttr", strconv.FormatUint(j.ttr, 10)},
			})
		})
	case "pause-tube":
		name := arg(cmd, 0)
		if _, ok := q.tubes[name]; !ok {
			return "NOT_FOUND\r\n"
		}
		q.tubes[name] = argUint(cmd, 1)
		return "PAUSED\r\n"
	default:
		return "UNKNOWN_COMMAND\r\n"
	}
}

func (q *FakeQueue) put(s *Session, cmd Command) string {
	q.lastID++
	j := &fakeJob{
		id:       q.lastID,
		tube:     s.Tube,
		priority: argUint(cmd, 0),
		delay:    argUint(cmd, 1),
		ttr:      argUint(cmd, 2),
		body:     cmd.Body,
		state:    stateReady,
	}
	if j.delay > 0 {
		j.state = stateDelayed
	}

	q.jobs[j.id] = j
	q.touchTube(j.tube)
	return fmt.Sprintf("INSERTED %d\r\n", j.id)
}

func (q *FakeQueue) reserve(s *Session) string {
	var next *fakeJob
	for _, j := range q.jobs {
		if j.state != stateReady || !slices.Contains(s.Watched, j.tube) || q.tubes[j.tube] > 0 {
			continue
		}
		if next == nil || j.priority < next.priority || (j.priority == next.priority && j.id < next.id) {
			next = j
		}
	}

	if next == nil {
		return "TIMED_OUT\r\n"
	}

	next.state = stateReserved
	next.owner = s.ID
	return jobResponse("RESERVED", next)
}

func (q *FakeQueue) kick(s *Session, bound uint64) string {
	state := stateBuried
	if q.count(s.Tube, stateBuried) == 0 {
		state = stateDelayed
	}

	kicked := 0
	for _, j := range q.sorted() {
		if uint64(kicked) >= bound {
			break
		}
		if j.tube == s.Tube && j.state == state {
			j.state = stateReady
			j.delay = 0
			kicked++
		}
	}

	return fmt.Sprintf("KICKED %d\r\n", kicked)
}

func (q *FakeQueue) peekState(s *Session, state string) string {
	for _, j := range q.sorted() {
		if j.tube == s.Tube && j.state == state {
			return found(j)
		}
	}
	return "NOT_FOUND\r\n"
}

func (q *FakeQueue) withJob(cmd Command, f func(j *fakeJob) string) string {
	id, err := strconv.ParseUint(arg(cmd, 0), 10, 64)
	if err != nil {
		return "BAD_FORMAT\r\n"
	}

	j, ok := q.jobs[id]
	if !ok {
		return "NOT_FOUND\r\n"
	}
	return f(j)
}

func (q *FakeQueue) withReservedJob(s *Session, cmd Command, f func(j *fakeJob) string) string {
	return q.withJob(cmd, func(j *fakeJob) string {
		if j.state != stateReserved || j.owner != s.ID {
			return "NOT_FOUND\r\n"
		}
		return f(j)
	})
}

// sorted returns the jobs in id order.
func (q *FakeQueue) sorted() []*fakeJob {
	jobs := make([]*fakeJob, 0, len(q.jobs))
	for _, j := range q.jobs {
		jobs = append(jobs, j)
	}
	slices.SortFunc(jobs, func(a, b *fakeJob) int {
		switch {
		case a.id < b.id:
			return -1
		case a.id > b.id:
			return 1
		default:
			return 0
		}
	})
	return jobs
}

// count returns the number of jobs in a state, in one tube or all when tube is empty.
func (q *FakeQueue) count(tube, state string) int {
	n := 0
	for _, j := range q.jobs {
		if j.state == state && (tube == "" || j.tube == tube) {
			n++
		}
	}
	return n
}

func (q *FakeQueue) touchTube(name string) {
	if _, ok := q.tubes[name]; !ok {
		q.tubes[name] = 0
	}
}

func found(j *fakeJob) string {
	return jobResponse("FOUND", j)
}

func jobResponse(status string, j *fakeJob) string {
	return fmt.Sprintf("%s %d %d\r\n%s\r\n", status, j.id, len(j.body), j.body)
}

func listResponse(items []string) string {
	var b strings.Builder
	b.WriteString("---\n")
	for _, item := range items {
		b.WriteString("- " + item + "\n")
	}
	return fmt.Sprintf("OK %d\r\n%s\r\n", b.Len(), b.String())
}

func dictResponse(fields [][2]string) string {
	var b strings.Builder
	b.WriteString("---\n")
	for _, f := range fields {
		b.WriteString(f[0] + ": " + f[1] + "\n")
	}
	return fmt.Sprintf("OK %d\r\n%s\r\n", b.Len(), b.String())
}

func arg(cmd Command, i int) string {
	if i >= len(cmd.Args) {
		return ""
	}
	return cmd.Args[i]
}

func argUint(cmd Command, i int) uint64 {
	v, _ := strconv.ParseUint(arg(cmd, i), 10, 64)
	return v
}
