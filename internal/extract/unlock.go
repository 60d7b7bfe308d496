package extract

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/joseph-ayodele/statement-analyzer/internal/common"
)

// Messages returned to callers for password problems.
const (
	MsgPasswordRequired  = "PDF is password-protected; no password provided."
	MsgIncorrectPassword = "Incorrect PDF password."
)

type pdfInfo struct {
	pageCount int
	encrypted bool
}

// inspectPDF opens the file with pdfcpu to check the password and read the page
// count. Structural problems pdfcpu is stricter about than poppler are logged and
// ignored; password problems are returned as invalid input.
func inspectPDF(path, password string, logger *slog.Logger) (pdfInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return pdfInfo{}, common.NewAppError("INVALID_INPUT", "open statement", fmt.Errorf("%w: %v", common.ErrInvalidInput, err))
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.UserPW = password
	conf.OwnerPW = password

	ctx, err := api.ReadContext(f, conf)
	if err != nil {
		if isPasswordErr(err) {
			if password == "" {
				return pdfInfo{encrypted: true}, common.NewAppError("PDF_LOCKED", MsgPasswordRequired, common.ErrInvalidInput)
			}
			return pdfInfo{encrypted: true}, common.NewAppError("PDF_LOCKED", MsgIncorrectPassword, common.ErrInvalidInput)
		}
		logger.Warn("extract.pdf.inspect_failed", "path", path, "error", err)
		return pdfInfo{}, nil
	}
	return pdfInfo{pageCount: ctx.PageCount, encrypted: ctx.Encrypt != nil}, nil
}

func isPasswordErr(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "password") || strings.Contains(msg, "decrypt")
}
