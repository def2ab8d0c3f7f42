package listeners

import (
	"EchoJournal/internal/models"
	"EchoJournal/pkg/util"
	"EchoJournal/pkg/websocket"
)

// RegisterStatusListeners 订阅状态变更信号，推给 websocket 客户端。
// 信号在 worker 回写状态的调用栈里同步发出，推送放协程避免拖慢回写
func RegisterStatusListeners(hub *websocket.Hub) {
	util.Sig().Connect(models.SigEntryStatusChange, func(sender any, params ...any) {
		entry, ok := sender.(*models.Entry)
		if !ok || len(params) == 0 {
			return
		}
		status, ok := params[0].(string)
		if !ok {
			return
		}
		go hub.Push(entry.UserID, websocket.StatusEvent{
			Kind:     "entry",
			PublicID: entry.PublicID,
			Status:   status,
		})
	})

	util.Sig().Connect(models.SigSummaryStatusChange, func(sender any, params ...any) {
		summary, ok := sender.(*models.Summary)
		if !ok || len(params) == 0 {
			return
		}
		status, ok := params[0].(string)
		if !ok {
			return
		}
		go hub.Push(summary.UserID, websocket.StatusEvent{
			Kind:     "summary",
			PublicID: summary.PublicID,
			Status:   status,
		})
	})
}
