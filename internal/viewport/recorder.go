package viewport

import (
	"sync"
	"time"
)

// Command：一次已下发的相机指令
type Command struct {
	Region   Region        `json:"region"`
	Duration time.Duration `json:"duration_ns"`
	At       time.Time     `json:"at"`
}

// 文档注释：记录型地图表面
// 背景：服务端没有真实地图，使用记录器承接相机指令，通过 API 暴露最近一次区域供客户端同步。
type Recorder struct {
	mu   sync.Mutex
	cmds []Command
	max  int
}

func NewRecorder(max int) *Recorder {
	if max <= 0 {
		max = 64
	}
	return &Recorder{max: max}
}

func (r *Recorder) AnimateToRegion(reg Region, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmds = append(r.cmds, Command{Region: reg, Duration: d, At: time.Now()})
	if len(r.cmds) > r.max {
		r.cmds = r.cmds[len(r.cmds)-r.max:]
	}
}

// Last：最近一次指令
func (r *Recorder) Last() (Command, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.cmds) == 0 {
		return Command{}, false
	}
	return r.cmds[len(r.cmds)-1], true
}

func (r *Recorder) History() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Command(nil), r.cmds...)
}
