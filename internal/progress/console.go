package progress

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/statement-analyzer/internal/entity"
)

const barWidth = 30

// Bar renders "[ 50.0%] |███████████████               | chunks 1/2".
func Bar(p entity.JobProgress) string {
	pct := p.Percent()
	filled := int(pct / 100 * barWidth)
	if filled > barWidth {
		filled = barWidth
	}
	return fmt.Sprintf("[%5.1f%%] |%s%s| chunks %d/%d",
		pct,
		strings.Repeat("█", filled),
		strings.Repeat(" ", barWidth-filled),
		p.ChunksDone, p.ChunksTotal,
	)
}

// LogProgress writes the console bar for a job at INFO.
func (s *Store) LogProgress(jobID string) {
	p, err := s.Get(jobID)
	if err != nil {
		return
	}
	s.logger.Info("progress.bar", "job_id", jobID, "bar", Bar(p), "last_step", p.LastStep)
}
