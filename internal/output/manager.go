package output

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tanq16/rangedl/internal/controller"
)

type DownloadOutput struct {
	ID          int
	URL         string
	Status      string
	Message     string
	StreamLines []string
	Complete    bool
	StartTime   time.Time
	LastUpdated time.Time
	Error       error
	Index       int
	ctrl        *controller.Controller
}

type ErrorReport struct {
	URL   string
	Error error
	Time  time.Time
}

// Manager draws one status line per registered download, redrawing in place
// on a ticker. Downloads with a controller attached get a progress line.
type Manager struct {
	out         io.Writer
	outputs     map[int]*DownloadOutput
	mutex       sync.RWMutex
	numLines    int
	errors      []ErrorReport
	doneCh      chan struct{}
	displayTick time.Duration
	count       int
	displayWg   sync.WaitGroup
	started     bool
}

func NewManager(out io.Writer) *Manager {
	return &Manager{
		out:         out,
		outputs:     make(map[int]*DownloadOutput),
		errors:      []ErrorReport{},
		doneCh:      make(chan struct{}),
		displayTick: 300 * time.Millisecond,
	}
}

func (m *Manager) Register(url string) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.count++
	m.outputs[m.count] = &DownloadOutput{
		ID:          m.count,
		URL:         url,
		Status:      "pending",
		StreamLines: []string{},
		StartTime:   time.Now(),
		LastUpdated: time.Now(),
		Index:       m.count,
	}
	return m.count
}

// Track attaches ctrl to a download; its progress is sampled on every redraw.
func (m *Manager) Track(id int, ctrl *controller.Controller) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if info, exists := m.outputs[id]; exists {
		info.ctrl = ctrl
		info.StartTime = time.Now()
	}
}

func (m *Manager) SetMessage(id int, message string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if info, exists := m.outputs[id]; exists {
		info.Message = message
		info.LastUpdated = time.Now()
	}
}

func (m *Manager) Complete(id int, message string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if info, exists := m.outputs[id]; exists {
		info.StreamLines = []string{}
		if message == "" {
			info.Message = fmt.Sprintf("Completed %s", info.URL)
		} else {
			info.Message = message
		}
		info.Complete = true
		info.Status = "success"
		info.ctrl = nil
		info.LastUpdated = time.Now()
	}
}

func (m *Manager) ReportError(id int, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if info, exists := m.outputs[id]; exists {
		info.Complete = true
		info.Status = "error"
		info.Error = err
		info.ctrl = nil
		info.LastUpdated = time.Now()
		m.errors = append(m.errors, ErrorReport{URL: info.URL, Error: err, Time: time.Now()})
	}
}

// progressLine renders the state of ctrl. Unknown sizes get a byte count
// instead of a bar.
func progressLine(ctrl *controller.Controller, elapsed time.Duration) string {
	downloaded := ctrl.Downloaded()
	speed := debugStyle.Render(FormatSpeed(downloaded, elapsed))
	var line string
	if total := ctrl.TotalSize(); total > 0 {
		text := fmt.Sprintf("%s / %s", FormatBytes(downloaded), FormatBytes(total))
		line = fmt.Sprintf("%s%s %s %s", progressBar(downloaded, total, 30), debugStyle.Render(text), StyleSymbols["bullet"], speed)
	} else {
		line = fmt.Sprintf("%s %s %s", debugStyle.Render(FormatBytes(downloaded)), StyleSymbols["bullet"], speed)
	}
	if ctrl.Paused() {
		line += " " + warningStyle.Render("(paused)")
	}
	return line
}

// refreshProgress samples every attached controller. Caller holds the lock.
func (m *Manager) refreshProgress() {
	for _, info := range m.outputs {
		if info.ctrl == nil || info.Complete {
			continue
		}
		info.StreamLines = []string{progressLine(info.ctrl, time.Since(info.StartTime))}
		if info.ctrl.Paused() {
			info.Status = "warning"
		} else if info.Status == "warning" {
			info.Status = "pending"
		}
	}
}

func (m *Manager) GetStatusIndicator(status string) string {
	switch status {
	case "success", "pass":
		return successStyle.Render(StyleSymbols["pass"])
	case "error", "fail":
		return errorStyle.Render(StyleSymbols["fail"])
	case "warning":
		return warningStyle.Render(StyleSymbols["warning"])
	case "pending":
		return pendingStyle.Render(StyleSymbols["pending"])
	default:
		return infoStyle.Render(StyleSymbols["bullet"])
	}
}

func styleMessage(status, message string) string {
	switch status {
	case "success":
		return successStyle.Render(message)
	case "error":
		return errorStyle.Render(message)
	case "warning":
		return warningStyle.Render(message)
	default:
		return pendingStyle.Render(message)
	}
}

func (m *Manager) sortOutputs() (active, pending, completed []*DownloadOutput) {
	var all []*DownloadOutput
	for _, info := range m.outputs {
		all = append(all, info)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Index < all[j].Index
	})
	for _, f := range all {
		if f.Complete {
			completed = append(completed, f)
		} else if f.Status == "pending" && f.Message == "" {
			pending = append(pending, f)
		} else {
			active = append(active, f)
		}
	}
	return active, pending, completed
}

// render writes the current view and returns the number of lines written.
// Caller holds the lock.
func (m *Manager) render(availableLines int) int {
	lineCount := 0
	writeEntry := func(info *DownloadOutput, elapsed time.Duration, message string) {
		if lineCount >= availableLines {
			return
		}
		fmt.Fprintf(m.out, "%s%s %s %s\n", strings.Repeat(" ", 2), m.GetStatusIndicator(info.Status), debugStyle.Render(elapsed.String()), message)
		lineCount++
		indent := strings.Repeat(" ", 2+4)
		for _, line := range info.StreamLines {
			if lineCount >= availableLines {
				break
			}
			fmt.Fprintf(m.out, "%s%s\n", indent, streamStyle.Render(line))
			lineCount++
		}
	}

	active, pending, completed := m.sortOutputs()
	needed := len(completed)
	for _, f := range append(active, pending...) {
		needed += 1 + len(f.StreamLines)
	}
	if needed > availableLines {
		maxCompleted := max(availableLines-(needed-len(completed)), 0)
		if len(completed) > maxCompleted {
			completed = completed[len(completed)-maxCompleted:]
		}
	}

	for _, info := range active {
		writeEntry(info, time.Since(info.StartTime).Round(time.Second), styleMessage(info.Status, info.Message))
	}
	for _, info := range pending {
		if lineCount >= availableLines {
			break
		}
		fmt.Fprintf(m.out, "%s%s %s\n", strings.Repeat(" ", 2), m.GetStatusIndicator(info.Status), pendingStyle.Render("Waiting..."))
		lineCount++
	}
	if len(completed) > 10 && lineCount < availableLines {
		fmt.Fprintln(m.out, infoStyle.Render(fmt.Sprintf("%s%d downloads completed with varying hidden status ...", strings.Repeat(" ", 2), len(completed)-8)))
		completed = completed[len(completed)-8:]
		lineCount++
	}
	for _, info := range completed {
		writeEntry(info, info.LastUpdated.Sub(info.StartTime).Round(time.Second), styleMessage(info.Status, info.Message))
	}
	return lineCount
}

func (m *Manager) updateDisplay() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.refreshProgress()
	if m.numLines > 0 {
		fmt.Fprintf(m.out, "\033[%dA\033[J", m.numLines)
	}
	m.numLines = m.render(getTerminalHeight() - 3)
}

func (m *Manager) StartDisplay() {
	m.started = true
	m.displayWg.Add(1)
	go func() {
		defer m.displayWg.Done()
		ticker := time.NewTicker(m.displayTick)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.updateDisplay()
			case <-m.doneCh:
				m.updateDisplay()
				m.ShowSummary()
				return
			}
		}
	}()
}

// StopDisplay draws the final state and the summary. Without a running
// display only the summary is printed.
func (m *Manager) StopDisplay() {
	if !m.started {
		m.ShowSummary()
		return
	}
	close(m.doneCh)
	m.displayWg.Wait()
}

func (m *Manager) displayErrors() {
	if len(m.errors) == 0 {
		return
	}
	fmt.Fprintln(m.out)
	fmt.Fprintln(m.out, strings.Repeat(" ", 2)+errorStyle.Bold(true).Render("Errors:"))
	for i, report := range m.errors {
		fmt.Fprintf(m.out, "%s%s %s %s\n",
			strings.Repeat(" ", 2+2),
			errorStyle.Render(fmt.Sprintf("%d.", i+1)),
			debugStyle.Render(fmt.Sprintf("[%s]", report.Time.Format("15:04:05"))),
			errorStyle.Render(fmt.Sprintf("URL: %s", report.URL)))
		fmt.Fprintf(m.out, "%s%s\n", strings.Repeat(" ", 2+4), errorStyle.Render(fmt.Sprintf("Error: %v", report.Error)))
	}
}

func (m *Manager) ShowSummary() {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	fmt.Fprintln(m.out)
	var success, failures int
	for _, info := range m.outputs {
		if info.Status == "success" {
			success++
		} else if info.Status == "error" {
			failures++
		}
	}
	fmt.Fprintln(m.out, strings.Repeat(" ", 2)+success2Style.Render(fmt.Sprintf("Completed %d of %d", success, len(m.outputs))))
	if failures > 0 {
		fmt.Fprintln(m.out, strings.Repeat(" ", 2)+errorStyle.Render(fmt.Sprintf("Failed %d of %d", failures, len(m.outputs))))
	}
	m.displayErrors()
	fmt.Fprintln(m.out)
}
