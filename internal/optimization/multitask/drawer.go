package multitask

import (
	"github.com/copyleftdev/TAIGA/internal/optimization"
)

// DrawMode selects what the drawing collaborator renders for a task.
type DrawMode int

const (
	// DrawNone disables drawing.
	DrawNone DrawMode = iota
	// DrawTrace renders the best/average objective history after the run.
	DrawTrace
	// DrawObjectiveAnim renders the objective history incrementally while
	// the run progresses.
	DrawObjectiveAnim
	// DrawDecisionAnim renders the decision variables incrementally while
	// the run progresses.
	DrawDecisionAnim
)

// Drawer is the rendering collaborator the engine notifies at the end of
// every statistics pass and once more when a task finishes. Rendering and
// any failures inside it are outside the engine's responsibility; the
// engine only guarantees the call is excluded from optimization-time
// accounting.
type Drawer interface {
	Draw(task int, mode DrawMode, pop *optimization.Population, trace Trace, final bool)
}

// NopDrawer discards every draw request. It is the default collaborator.
type NopDrawer struct{}

// Draw implements Drawer.
func (NopDrawer) Draw(int, DrawMode, *optimization.Population, Trace, bool) {}
