package pipeline

import (
	"fmt"

	"github.com/joseph-ayodele/statement-analyzer/constants"
	"github.com/joseph-ayodele/statement-analyzer/internal/common"
	"github.com/joseph-ayodele/statement-analyzer/internal/entity"
)

// ChunkPages splits pages into consecutive runs of at most size pages. Every page
// lands in exactly one chunk, empty pages included, in original order.
func ChunkPages(pages []entity.PageText, size int) ([]entity.Chunk, error) {
	if size < constants.MinPagesPerChunk || size > constants.MaxPagesPerChunk {
		return nil, common.InvalidInputErrorf("pages per chunk must be between %d and %d, got %d",
			constants.MinPagesPerChunk, constants.MaxPagesPerChunk, size)
	}
	chunks := make([]entity.Chunk, 0, (len(pages)+size-1)/size)
	for start := 0; start < len(pages); start += size {
		end := min(start+size, len(pages))
		chunks = append(chunks, entity.Chunk{Pages: pages[start:end:end]})
	}
	return chunks, nil
}

func describeChunk(c entity.Chunk) string {
	idx := c.Indices()
	switch len(idx) {
	case 0:
		return "no pages"
	case 1:
		return fmt.Sprintf("page %d", idx[0])
	default:
		return fmt.Sprintf("pages %d-%d", idx[0], idx[len(idx)-1])
	}
}
