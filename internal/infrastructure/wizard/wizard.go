package wizard

import (
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/linebyline/covgate/internal/application"
	"github.com/linebyline/covgate/internal/domain"
)

type (
	wizardState int

	initWizardModel struct {
		state   wizardState
		base    application.Config
		rules   []wizardRule
		cursor  int
		warning string
		// failOnError fails a rule whose coverage cannot be calculated.
		failOnError bool
		confirmed   bool
		aborted     bool
	}

	wizardRule struct {
		kind      domain.RuleKind
		threshold float64
		enabled   bool
	}
)

const (
	stateIntro wizardState = iota
	stateEdit
	stateConfirm
)

const defaultThreshold = 80

// Run lets the user review rule thresholds for cfg. The returned bool is
// false when the wizard was cancelled.
func Run(cfg application.Config, stdout io.Writer, stdin io.Reader) (application.Config, bool, error) {
	return runInitWizard(cfg, stdout, stdin)
}

func runInitWizard(cfg application.Config, stdout io.Writer, stdin io.Reader) (application.Config, bool, error) {
	model := newInitWizardModel(cfg)
	program := tea.NewProgram(model, tea.WithInput(stdin), tea.WithOutput(stdout))
	res, err := program.Run()
	if err != nil {
		return cfg, false, err
	}
	finalModel, ok := res.(*initWizardModel)
	if !ok {
		return cfg, false, fmt.Errorf("unexpected wizard state")
	}
	if finalModel.aborted || !finalModel.confirmed {
		return cfg, false, nil
	}
	return finalModel.toConfig(), true, nil
}

// newInitWizardModel lists every rule kind. Kinds present in cfg start
// enabled with their configured threshold.
func newInitWizardModel(cfg application.Config) *initWizardModel {
	configured := make(map[domain.RuleKind]float64, len(cfg.Rules))
	for _, r := range cfg.Rules {
		configured[r.Kind()] = r.Threshold().Value()
	}
	kinds := domain.RuleKinds()
	rules := make([]wizardRule, len(kinds))
	for i, kind := range kinds {
		threshold, ok := configured[kind]
		if !ok {
			threshold = defaultThreshold
		}
		rules[i] = wizardRule{kind: kind, threshold: threshold, enabled: ok}
	}
	return &initWizardModel{
		state:       stateIntro,
		base:        cfg,
		rules:       rules,
		failOnError: cfg.FailOnError,
	}
}

func (m *initWizardModel) Init() tea.Cmd {
	return nil
}

func (m *initWizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.aborted = true
			return m, tea.Quit
		case "enter":
			switch m.state {
			case stateIntro:
				m.state = stateEdit
			case stateEdit:
				if m.enabledCount() == 0 {
					m.warning = "Enable at least one rule."
					return m, nil
				}
				m.warning = ""
				m.state = stateConfirm
			case stateConfirm:
				m.confirmed = true
				return m, tea.Quit
			}
		case "esc":
			if m.state == stateConfirm {
				m.state = stateEdit
			}
		case "up":
			if m.state == stateEdit {
				m.moveCursor(-1)
			}
		case "down":
			if m.state == stateEdit {
				m.moveCursor(1)
			}
		case " ":
			if m.state == stateEdit {
				m.toggle()
			}
		case "f":
			if m.state == stateEdit {
				m.failOnError = !m.failOnError
			}
		case "left", "-":
			if m.state == stateEdit {
				m.adjustSelection(-5)
			}
		case "right", "+":
			if m.state == stateEdit {
				m.adjustSelection(5)
			}
		}
	}
	return m, nil
}

func (m *initWizardModel) View() string {
	switch m.state {
	case stateIntro:
		return m.viewIntro()
	case stateEdit:
		return m.viewEdit()
	case stateConfirm:
		return m.viewConfirm()
	default:
		return ""
	}
}

func (m *initWizardModel) moveCursor(delta int) {
	last := len(m.rules) - 1
	m.cursor += delta
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor > last {
		m.cursor = last
	}
}

func (m *initWizardModel) toggle() {
	m.rules[m.cursor].enabled = !m.rules[m.cursor].enabled
}

// adjustSelection changes the threshold under the cursor and enables the rule.
func (m *initWizardModel) adjustSelection(delta float64) {
	r := &m.rules[m.cursor]
	r.threshold = clamp(r.threshold+delta, 0, 100)
	r.enabled = true
}

func (m *initWizardModel) enabledCount() int {
	n := 0
	for _, r := range m.rules {
		if r.enabled {
			n++
		}
	}
	return n
}

func (m *initWizardModel) viewIntro() string {
	var b strings.Builder
	fmt.Fprintf(&b, "\ncovgate init wizard\n\n")
	fmt.Fprintf(&b, "Coverage report: %s\n", orNone(m.base.Coverage.Report))
	fmt.Fprintf(&b, "Source roots:    %s\n", orNone(strings.Join(m.base.SourceRoots, ", ")))
	fmt.Fprintf(&b, "Baseline ref:    %s\n\n", m.base.BaseRef)
	fmt.Fprintf(&b, "The wizard helps you choose which coverage rules gate a change.\n")
	fmt.Fprintf(&b, "Press Enter to continue, or Ctrl+C to cancel.\n")
	return b.String()
}

func (m *initWizardModel) viewEdit() string {
	var b strings.Builder
	fmt.Fprintf(&b, "\nChoose rules and thresholds\n\n")
	fmt.Fprintf(&b, "Use ↑/↓ to move, space to toggle, ←/→ or +/- to change values, f to toggle fail-on-error.\n\n")
	for idx, r := range m.rules {
		prefix := "  "
		if m.cursor == idx {
			prefix = "> "
		}
		box := "[ ]"
		if r.enabled {
			box = "[x]"
		}
		fmt.Fprintf(&b, "%s%s %-24s %.0f%%\n", prefix, box, r.kind, r.threshold)
	}
	fmt.Fprintf(&b, "\nFail on calculation errors: %s\n", yesNo(m.failOnError))
	if m.warning != "" {
		fmt.Fprintf(&b, "\n%s\n", m.warning)
	}
	fmt.Fprintf(&b, "\nEnter to continue, q to cancel.\n")
	return b.String()
}

func (m *initWizardModel) viewConfirm() string {
	var b strings.Builder
	fmt.Fprintf(&b, "\nReady to write configuration\n\n")
	fmt.Fprintf(&b, "Rules:\n")
	for _, r := range m.rules {
		if r.enabled {
			fmt.Fprintf(&b, "  %s >= %.0f%%\n", r.kind, r.threshold)
		}
	}
	fmt.Fprintf(&b, "Fail on calculation errors: %s\n", yesNo(m.failOnError))
	if len(m.base.Exclude) > 0 {
		fmt.Fprintf(&b, "\nConfigured exclusions:\n")
		for _, pattern := range m.base.Exclude {
			fmt.Fprintf(&b, "  - %s\n", pattern)
		}
	} else {
		fmt.Fprintf(&b, "\nNo exclusions configured.\n")
	}
	fmt.Fprintf(&b, "\nPress Enter to save, Esc to go back, q to cancel.\n")
	return b.String()
}

// toConfig returns the base config with its rules replaced by the enabled
// rules, in rule-kind order.
func (m *initWizardModel) toConfig() application.Config {
	cfg := m.base
	cfg.Rules = nil
	for _, r := range m.rules {
		if r.enabled {
			cfg.Rules = append(cfg.Rules, domain.MustRule(r.kind, r.threshold))
		}
	}
	cfg.FailOnError = m.failOnError
	cfg.Exclude = append([]string(nil), m.base.Exclude...)
	return cfg
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
