package helpers

import (
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Timer records nested begin/end pairs. A nil timer does nothing, so callers
// can leave timing disabled without checking.
type Timer struct {
	data  []timerData
	mutex sync.Mutex
}

type timerData struct {
	time  time.Time
	name  string
	isEnd bool
}

func (t *Timer) Begin(name string) {
	if t != nil {
		t.mutex.Lock()
		defer t.mutex.Unlock()
		t.data = append(t.data, timerData{name: name, time: time.Now()})
	}
}

func (t *Timer) End(name string) {
	if t != nil {
		t.mutex.Lock()
		defer t.mutex.Unlock()
		t.data = append(t.data, timerData{name: name, time: time.Now(), isEnd: true})
	}
}

// Writes one debug event per finished span, indented by nesting depth
func (t *Timer) Log(log zerolog.Logger) {
	if t == nil {
		return
	}
	t.mutex.Lock()
	defer t.mutex.Unlock()

	var stack []timerData
	for _, item := range t.data {
		if !item.isEnd {
			stack = append(stack, item)
			continue
		}
		last := len(stack) - 1
		top := stack[last]
		stack = stack[:last]
		if item.name != top.name {
			panic("Internal error")
		}
		log.Debug().
			Str("span", strings.Repeat("  ", len(stack))+top.name).
			Dur("took", item.time.Sub(top.time)).
			Msg("timing")
	}
}
