package generator

import "fmt"

// State は生成セッションの進行状態です。
type State int

const (
	StateIdle State = iota
	StatePreparing
	StateRequestingPrompts
	StateRenderingPanels
	StateAssembling
	StateCompleted
	StateCancelled
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:              "idle",
	StatePreparing:         "preparing",
	StateRequestingPrompts: "requestingPrompts",
	StateRenderingPanels:   "renderingPanels",
	StateAssembling:        "assembling",
	StateCompleted:         "completed",
	StateCancelled:         "cancelled",
	StateFailed:            "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal は終端状態かどうかを返します。
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

// Snapshot はある時点のセッション状態のコピーです。オブザーバーに渡されます。
type Snapshot struct {
	State    State
	Running  bool
	Progress float64
	Status   string
	Results  int
	Err      error
}

// Observer はセッションの状態が変わるたびに呼ばれます。
// セッションのロックの外で呼ばれるので、中から Cancel を呼んでも構いません。
type Observer func(Snapshot)

const (
	// PathRemote はバックエンド経由の生成経路です。
	PathRemote = "remote"
	// PathLocal は端末側モデルによる生成経路です。
	PathLocal = "local"
)
