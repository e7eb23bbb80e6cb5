package requestdata

import (
	"context"

	"github.com/google/uuid"

	"github.com/waveroom/marketplace-backend/internal/types"
)

var requestDataKey = struct{}{}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	val := ctx.Value(requestDataKey)
	if rd, ok := val.(*RequestData); ok {
		return rd
	}
	return nil
}

// RequestData is the session identity attached to every request. Mode is
// derived from the credentials present, never read ambiently: an anonymous
// request carries only SessionID, an authenticated one carries UserID and,
// right after login, still carries the anonymous SessionID - which is what
// triggers the one-time cart merge.
type RequestData struct {
	UserID    uuid.UUID
	SessionID string
	Mode      types.SessionMode
}

// SessionKey is the stable identity the cart subsystem keys engines and
// notices by: the user for authenticated requests, the anonymous session
// otherwise.
func (rd *RequestData) SessionKey() string {
	if rd.Mode == types.SessionAuthenticated {
		return "user:" + rd.UserID.String()
	}
	return "anon:" + rd.SessionID
}
