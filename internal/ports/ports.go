// Package ports assigns dedicated listener ports to selected nodes.
package ports

import (
	"fmt"

	"github.com/clashgen/clashgen/internal/model"
)

const maxPort = 65535

type AssignError struct {
	AppError model.AppError
}

func (e *AssignError) Error() string {
	return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
}

// Assign walks the selected nodes in caller order and hands each the next
// free port starting at startPort. Reserved ports (the base HTTP/socks/mixed
// ports) are skipped; ports already taken by a confirmed existing table are a
// hard conflict so incremental re-runs never silently reshuffle.
func Assign(selected []model.CanonicalNode, startPort int, lt model.ListenerType, reserved []int, existing []model.PortMapping) ([]model.PortMapping, error) {
	if !lt.Valid() {
		return nil, &AssignError{AppError: model.AppError{
			Code:    model.CodePortConflict,
			Message: fmt.Sprintf("未知的监听类型：%s", lt),
			Stage:   "assign_ports",
		}}
	}
	if startPort < 1 || startPort > maxPort {
		return nil, &AssignError{AppError: model.AppError{
			Code:    model.CodePortRangeExceeded,
			Message: fmt.Sprintf("起始端口 %d 不在 1-%d 范围内", startPort, maxPort),
			Stage:   "assign_ports",
		}}
	}

	skip := make(map[int]struct{}, len(reserved))
	for _, p := range reserved {
		skip[p] = struct{}{}
	}
	taken := make(map[int]string, len(existing))
	for _, m := range existing {
		taken[m.Port] = m.NodeName
	}

	out := make([]model.PortMapping, 0, len(selected))
	port := startPort
	for _, n := range selected {
		for {
			if port > maxPort {
				return nil, &AssignError{AppError: model.AppError{
					Code:    model.CodePortRangeExceeded,
					Message: fmt.Sprintf("端口分配超出上限 %d", maxPort),
					Stage:   "assign_ports",
				}}
			}
			if holder, ok := taken[port]; ok {
				return nil, &AssignError{AppError: model.AppError{
					Code:    model.CodePortConflict,
					Message: fmt.Sprintf("端口 %d 已被映射占用（%s）", port, holder),
					Stage:   "assign_ports",
					Hint:    "调整起始端口或删除旧的端口映射",
				}}
			}
			if _, ok := skip[port]; !ok {
				break
			}
			port++
		}
		out = append(out, model.PortMapping{
			NodeKey:  n.IdentityKey(),
			NodeName: n.Name,
			Port:     port,
			Listener: lt,
		})
		port++
	}
	return out, nil
}
