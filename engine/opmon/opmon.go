package opmon

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/xiaonanln/gwscript/engine/gwlog"
)

var (
	operationAllocPool = sync.Pool{
		New: func() interface{} {
			return &Operation{}
		},
	}

	defaultMonitor = NewMonitor()
)

// OpStat is the accumulated statistics of one operation name
type OpStat struct {
	Name          string
	Count         uint64
	TotalDuration time.Duration
	MaxDuration   time.Duration
}

// Avg returns the average duration of the operation
func (s OpStat) Avg() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(s.Count)
}

// Monitor records durations of named operations
type Monitor struct {
	sync.Mutex
	opInfos map[string]*OpStat
}

// NewMonitor creates an empty monitor
func NewMonitor() *Monitor {
	return &Monitor{
		opInfos: map[string]*OpStat{},
	}
}

// Default returns the process wide monitor
func Default() *Monitor {
	return defaultMonitor
}

func (monitor *Monitor) record(opname string, duration time.Duration) {
	monitor.Lock()
	info := monitor.opInfos[opname]
	if info == nil {
		info = &OpStat{Name: opname}
		monitor.opInfos[opname] = info
	}
	info.Count += 1
	info.TotalDuration += duration
	if duration > info.MaxDuration {
		info.MaxDuration = duration
	}
	monitor.Unlock()
}

// Snapshot returns the stats sorted by name and clears the monitor
func (monitor *Monitor) Snapshot() []OpStat {
	monitor.Lock()
	opInfos := monitor.opInfos
	monitor.opInfos = map[string]*OpStat{}
	monitor.Unlock()

	stats := make([]OpStat, 0, len(opInfos))
	for _, info := range opInfos {
		stats = append(stats, *info)
	}
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Name < stats[j].Name
	})
	return stats
}

// Dump writes the stats to w and clears the monitor
func (monitor *Monitor) Dump(w io.Writer) {
	stats := monitor.Snapshot()
	if len(stats) == 0 {
		return
	}
	fmt.Fprint(w, "=====================================================================================\n")
	for _, s := range stats {
		fmt.Fprintf(w, "%-40sx%-10d AVG %-10s MAX %-10s\n", s.Name, s.Count, s.Avg(), s.MaxDuration)
	}
}

// StartOperation creates a new operation recorded to this monitor
func (monitor *Monitor) StartOperation(operationName string) *Operation {
	op := operationAllocPool.Get().(*Operation)
	op.monitor = monitor
	op.name = operationName
	op.startTime = time.Now()
	return op
}

// Operation is the type of operation to be monitored
type Operation struct {
	monitor   *Monitor
	name      string
	startTime time.Time
}

// StartOperation creates a new operation recorded to the default monitor
func StartOperation(operationName string) *Operation {
	return defaultMonitor.StartOperation(operationName)
}

// Finish finishes the operation and records the duration of operation
func (op *Operation) Finish(warnThreshold time.Duration) time.Duration {
	takeTime := time.Since(op.startTime)
	op.monitor.record(op.name, takeTime)
	if warnThreshold > 0 && takeTime >= warnThreshold {
		gwlog.Warnf("opmon: operation %s takes %s > %s", op.name, takeTime, warnThreshold)
	}
	op.monitor = nil
	operationAllocPool.Put(op)
	return takeTime
}
