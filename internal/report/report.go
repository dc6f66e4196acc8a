// Package report builds the final collaboration report for a room: a flow
// tree tracing prompt batches through analyses into design specs,
// per-participant scorecards, and aggregate collaboration metrics. The
// computation is pure over the room's persisted history; Engine adds the
// data loading.
package report

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/vibedeux/go-room-backend/internal/domain"
	"github.com/vibedeux/go-room-backend/internal/repo"
)

// Flow node types.
const (
	NodePromptBatch = "prompt_batch"
	NodeAnalysis    = "analysis"
	NodeDesignSpec  = "design_spec"
)

// FlowNode is one vertex of the flow tree. Exactly one of the payload
// field groups is populated, depending on Type.
type FlowNode struct {
	ID             string                 `json:"id"`
	Type           string                 `json:"type"`
	Timestamp      time.Time              `json:"timestamp"`
	ParticipantIDs []string               `json:"participantIds"`
	EventCount     int                    `json:"eventCount,omitempty"`
	Conflicts      []domain.Conflict      `json:"conflicts,omitempty"`
	Additive       []domain.AdditiveGroup `json:"additive,omitempty"`
	SpecHash       string                 `json:"specHash,omitempty"`
}

// FlowEdge connects two flow nodes, weighted by batch size and split by
// participant contribution.
type FlowEdge struct {
	Source         string  `json:"source"`
	Target         string  `json:"target"`
	Value          int     `json:"value"`
	PlayerAPercent float64 `json:"playerAPercent"`
	PlayerBPercent float64 `json:"playerBPercent"`
}

// FlowTree is the full DAG.
type FlowTree struct {
	Nodes []FlowNode `json:"nodes"`
	Edges []FlowEdge `json:"edges"`
}

// Scorecard summarizes one participant's outcomes across every analysis.
// Counts use set semantics over event IDs so an event reappearing in
// multiple analyses is counted once.
type Scorecard struct {
	ParticipantID     string  `json:"participantId"`
	DisplayName       string  `json:"displayName"`
	Color             string  `json:"color"`
	TotalPrompts      int     `json:"totalPrompts"`
	AcceptedPrompts   int     `json:"acceptedPrompts"`
	AcceptanceRate    float64 `json:"acceptanceRate"`
	AdditivePrompts   int     `json:"additivePrompts"`
	ConflictedPrompts int     `json:"conflictedPrompts"`
	WonConflicts      int     `json:"wonConflicts"`
}

// Collaboration is the aggregate quality measurement for the room.
type Collaboration struct {
	Score                  int     `json:"score"`
	CrossPollinationScore  float64 `json:"crossPollinationScore"`
	ConflictResolutionRate float64 `json:"conflictResolutionRate"`
	ContributionBalance    float64 `json:"contributionBalance"`
	Explanation            string  `json:"explanation"`
}

// ParticipantSummary is the raw-data participant listing.
type ParticipantSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// RawData carries the headline counts.
type RawData struct {
	TotalPrompts  int                  `json:"totalPrompts"`
	TotalAnalyses int                  `json:"totalAnalyses"`
	TotalSpecs    int                  `json:"totalSpecs"`
	Participants  []ParticipantSummary `json:"participants"`
}

// Report is the complete final report stored on an approved finish request.
type Report struct {
	FlowTree      FlowTree            `json:"flowTree"`
	Scorecards    []Scorecard         `json:"scorecards"`
	Collaboration Collaboration       `json:"collaboration"`
	RawData       RawData             `json:"rawData"`
	FinalSpec     *domain.SpecContent `json:"finalSpec,omitempty"`
}

// Engine loads a room's history and generates its report.
type Engine struct {
	DB  *gorm.DB
	Log zerolog.Logger
}

// NewEngine constructs an Engine.
func NewEngine(db *gorm.DB, log zerolog.Logger) *Engine {
	return &Engine{DB: db, Log: log}
}

// Generate builds the report from the room's full history. Participants are
// deduplicated by display name with the most recent joined row winning.
func (g *Engine) Generate(ctx context.Context, roomID string) (*Report, error) {
	tr := otel.Tracer("report/Engine")
	ctx, span := tr.Start(ctx, "Generate")
	span.SetAttributes(attribute.String("room.id", roomID))
	defer span.End()

	events, err := repo.ListEvents(ctx, g.DB, roomID)
	if err != nil {
		return nil, err
	}
	analyses, err := repo.ListAnalyses(ctx, g.DB, roomID)
	if err != nil {
		return nil, err
	}
	specs, err := repo.ListSpecs(ctx, g.DB, roomID)
	if err != nil {
		return nil, err
	}
	participants, err := repo.ListParticipants(ctx, g.DB, roomID)
	if err != nil {
		return nil, err
	}

	scorecards := BuildScorecards(events, analyses, participants)
	r := &Report{
		FlowTree:      BuildFlowTree(events, analyses, specs),
		Scorecards:    scorecards,
		Collaboration: Measure(events, analyses, participants, scorecards),
		RawData: RawData{
			TotalPrompts:  len(events),
			TotalAnalyses: len(analyses),
			TotalSpecs:    len(specs),
		},
	}
	for _, p := range participants {
		r.RawData.Participants = append(r.RawData.Participants, ParticipantSummary{ID: p.ID, Name: p.DisplayName, Color: p.Color})
	}
	if len(specs) > 0 {
		final := specs[len(specs)-1].Spec
		r.FinalSpec = &final
	}
	g.Log.Info().
		Str("room_id", roomID).
		Int("score", r.Collaboration.Score).
		Int("prompts", len(events)).
		Msg("report generated")
	return r, nil
}

// BuildFlowTree assembles batch, analysis, and spec nodes with
// contribution-weighted edges. Specs and analyses must be in chronological
// order (the repo listings guarantee this).
func BuildFlowTree(events []domain.PromptEvent, analyses []domain.PromptAnalysis, specs []domain.DesignSpec) FlowTree {
	tree := FlowTree{Nodes: []FlowNode{}, Edges: []FlowEdge{}}

	byAnalysis := make(map[string][]domain.PromptEvent, len(analyses))
	for _, a := range analyses {
		covered := make(map[string]bool, len(a.PromptEventIDs))
		for _, id := range a.PromptEventIDs {
			covered[id] = true
		}
		var batch []domain.PromptEvent
		for _, e := range events {
			if covered[e.ID] {
				batch = append(batch, e)
			}
		}
		byAnalysis[a.ID] = batch

		pids := uniqueParticipants(batch)
		tree.Nodes = append(tree.Nodes, FlowNode{
			ID:             "batch-" + a.ID,
			Type:           NodePromptBatch,
			Timestamp:      a.CreatedAt,
			ParticipantIDs: pids,
			EventCount:     len(batch),
		})
		tree.Nodes = append(tree.Nodes, FlowNode{
			ID:             "analysis-" + a.ID,
			Type:           NodeAnalysis,
			Timestamp:      a.CreatedAt,
			ParticipantIDs: pids,
			Conflicts:      a.Analysis.Conflicts,
			Additive:       a.Analysis.Additive,
		})
		pa, pb := contributionSplit(batch)
		tree.Edges = append(tree.Edges, FlowEdge{
			Source:         "batch-" + a.ID,
			Target:         "analysis-" + a.ID,
			Value:          len(batch),
			PlayerAPercent: pa,
			PlayerBPercent: pb,
		})
	}

	for _, s := range specs {
		batch, ok := byAnalysis[s.AnalysisID]
		if !ok {
			continue
		}
		pa, pb := contributionSplit(batch)
		tree.Nodes = append(tree.Nodes, FlowNode{
			ID:             "spec-" + s.ID,
			Type:           NodeDesignSpec,
			Timestamp:      s.CreatedAt,
			ParticipantIDs: uniqueParticipants(batch),
			SpecHash:       s.SpecHash,
		})
		tree.Edges = append(tree.Edges, FlowEdge{
			Source:         "analysis-" + s.AnalysisID,
			Target:         "spec-" + s.ID,
			Value:          len(batch),
			PlayerAPercent: pa,
			PlayerBPercent: pb,
		})
	}
	return tree
}

// contributionSplit divides a batch between its first two contributors.
// Empty batches split evenly; a single contributor takes everything.
func contributionSplit(batch []domain.PromptEvent) (percentA, percentB float64) {
	if len(batch) == 0 {
		return 50, 50
	}
	ids := uniqueParticipants(batch)
	if len(ids) == 1 {
		return 100, 0
	}
	a, b := ids[0], ids[1]
	var countA, countB int
	for _, e := range batch {
		switch e.ParticipantID {
		case a:
			countA++
		case b:
			countB++
		}
	}
	total := float64(countA + countB)
	return float64(countA) / total * 100, float64(countB) / total * 100
}

// uniqueParticipants lists a batch's contributors in first-seen order.
func uniqueParticipants(batch []domain.PromptEvent) []string {
	seen := make(map[string]bool, len(batch))
	out := []string{}
	for _, e := range batch {
		if !seen[e.ParticipantID] {
			seen[e.ParticipantID] = true
			out = append(out, e.ParticipantID)
		}
	}
	return out
}

// BuildScorecards computes the per-participant outcome summary.
func BuildScorecards(events []domain.PromptEvent, analyses []domain.PromptAnalysis, participants []domain.Participant) []Scorecard {
	cards := make([]Scorecard, 0, len(participants))
	for _, p := range participants {
		owned := make(map[string]bool)
		var total int
		for _, e := range events {
			if e.ParticipantID == p.ID {
				owned[e.ID] = true
				total++
			}
		}

		accepted := make(map[string]bool)
		additive := make(map[string]bool)
		conflicted := make(map[string]bool)
		won := make(map[string]bool)
		for _, a := range analyses {
			for _, id := range a.Analysis.PrioritizedPrompts {
				if owned[id] {
					accepted[id] = true
				}
			}
			for _, g := range a.Analysis.Additive {
				for _, id := range g.PromptIDs {
					if owned[id] {
						additive[id] = true
					}
				}
			}
			for _, c := range a.Analysis.Conflicts {
				for _, id := range c.PromptIDs {
					if owned[id] {
						conflicted[id] = true
						if c.Winner == id {
							won[id] = true
						}
					}
				}
			}
		}

		card := Scorecard{
			ParticipantID:     p.ID,
			DisplayName:       p.DisplayName,
			Color:             p.Color,
			TotalPrompts:      total,
			AcceptedPrompts:   len(accepted),
			AdditivePrompts:   len(additive),
			ConflictedPrompts: len(conflicted),
			WonConflicts:      len(won),
		}
		if total > 0 {
			card.AcceptanceRate = float64(len(accepted)) / float64(total) * 100
		}
		cards = append(cards, card)
	}
	return cards
}

// Measure computes the aggregate collaboration metrics. Rooms with fewer
// than two participants cannot exhibit collaboration and score zero.
func Measure(events []domain.PromptEvent, analyses []domain.PromptAnalysis, participants []domain.Participant, scorecards []Scorecard) Collaboration {
	if len(participants) < 2 {
		return Collaboration{
			Explanation: "Not enough participants to measure collaboration",
		}
	}

	owner := make(map[string]string, len(events))
	for _, e := range events {
		owner[e.ID] = e.ParticipantID
	}

	// Cross-pollination: share of additive groups mixing multiple authors.
	var totalGroups, mixedGroups int
	for _, a := range analyses {
		for _, g := range a.Analysis.Additive {
			totalGroups++
			authors := make(map[string]bool)
			for _, id := range g.PromptIDs {
				if pid, ok := owner[id]; ok {
					authors[pid] = true
				}
			}
			if len(authors) > 1 {
				mixedGroups++
			}
		}
	}
	var crossPollination float64
	if totalGroups > 0 {
		crossPollination = float64(mixedGroups) / float64(totalGroups) * 100
	}

	// Conflict resolution: share of conflicts settled with high confidence.
	// A conflict-free room resolves vacuously.
	var totalConflicts, highConfidence int
	for _, a := range analyses {
		for _, c := range a.Analysis.Conflicts {
			totalConflicts++
			if c.Confidence > 0.7 {
				highConfidence++
			}
		}
	}
	resolutionRate := 100.0
	if totalConflicts > 0 {
		resolutionRate = float64(highConfidence) / float64(totalConflicts) * 100
	}

	// Contribution balance: inverted coefficient of variation of prompt
	// counts, floored at zero.
	avg := float64(len(events)) / float64(len(participants))
	var variance float64
	for _, s := range scorecards {
		variance += math.Pow(float64(s.TotalPrompts)-avg, 2)
	}
	variance /= float64(len(participants))
	var cv float64
	if avg > 0 {
		cv = math.Sqrt(variance) / avg
	}
	balance := math.Max(0, 100-cv*100)

	score := int(math.Round(crossPollination*0.4 + resolutionRate*0.3 + balance*0.3))

	return Collaboration{
		Score:                  score,
		CrossPollinationScore:  crossPollination,
		ConflictResolutionRate: resolutionRate,
		ContributionBalance:    balance,
		Explanation:            explain(score, crossPollination, balance, mixedGroups, totalGroups),
	}
}

func explain(score int, crossPollination, balance float64, mixed, total int) string {
	switch {
	case score >= 80:
		return fmt.Sprintf("Excellent collaboration! Players built on each other's ideas frequently (%d%% of work was collaborative), resolved conflicts smoothly, and contributed relatively equally.", int(math.Round(crossPollination)))
	case score >= 60:
		return fmt.Sprintf("Good collaboration with some areas for improvement. %d out of %d idea groups involved both players working together.", mixed, total)
	case score >= 40:
		return fmt.Sprintf("Moderate collaboration. Players worked somewhat independently with %d%% cross-pollination and %d%% contribution balance.", int(math.Round(crossPollination)), int(math.Round(balance)))
	default:
		return "Limited collaboration detected. Players mostly worked independently with minimal building on each other's ideas."
	}
}
