package sensor

import (
	"context"
	"fmt"
	"time"

	"github.com/jamesprial/omv-mcp/internal/audit"
	"github.com/jamesprial/omv-mcp/internal/tools"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	toolNameSensorState = "sensor_state"
	toolNameSensorList  = "sensor_list"
	toolNameOMVStatus   = "omv_status"
	toolNameOMVRefresh  = "omv_refresh"
)

// SensorTools returns a slice of tool registrations for the OMV sensor
// surface. All tools are read-only with respect to the OMV server.
func SensorTools(adapter *Adapter, auditLog *audit.Logger) []tools.Registration {
	return []tools.Registration{
		toolSensorState(adapter, auditLog),
		toolSensorList(adapter, auditLog),
		toolOMVStatus(adapter, auditLog),
		toolOMVRefresh(adapter, auditLog),
	}
}

// toolSensorState constructs the sensor_state Registration.
func toolSensorState(adapter *Adapter, auditLog *audit.Logger) tools.Registration {
	tool := mcp.NewTool(toolNameSensorState,
		mcp.WithDescription("Get the current state and attributes of one OpenMediaVault condition sensor, e.g. cpuusage or uptime."),
		mcp.WithString("condition",
			mcp.Required(),
			mcp.Description("The condition key to read. One of: hostname, version, cpumodelname, kernel, time, uptime, loadaverage, cpuusage, memused."),
		),
	)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		condition := req.GetString("condition", "")
		params := map[string]any{"condition": condition}

		def, ok := Lookup(condition)
		if !ok {
			errMsg := fmt.Sprintf("unknown condition %q", condition)
			auditLog.RecordTool(toolNameSensorState, params, "error: "+errMsg, start)
			return tools.ErrorResult(errMsg), nil
		}

		entity := Entity{
			EntityName:   fmt.Sprintf("%s_%s", adapter.Name(), condition),
			Condition:    condition,
			FriendlyName: def.FriendlyName,
			Icon:         def.Icon,
			Unit:         def.Unit,
			State:        adapter.StateOf(condition),
			Available:    adapter.Available(),
		}

		auditLog.RecordTool(toolNameSensorState, params, "ok", start)
		return tools.JSONResult(entity), nil
	}

	return tools.Registration{Tool: tool, Handler: server.ToolHandlerFunc(handler)}
}

// toolSensorList constructs the sensor_list Registration.
func toolSensorList(adapter *Adapter, auditLog *audit.Logger) tools.Registration {
	tool := mcp.NewTool(toolNameSensorList,
		mcp.WithDescription("List every monitored OpenMediaVault condition sensor with its entity name, friendly name, icon, and current value."),
	)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()

		entities := adapter.Entities()

		auditLog.RecordTool(toolNameSensorList, nil, "ok", start)
		return tools.JSONResult(entities), nil
	}

	return tools.Registration{Tool: tool, Handler: server.ToolHandlerFunc(handler)}
}

// omvStatusResult is the response shape of the omv_status tool.
type omvStatusResult struct {
	Name      string         `json:"name"`
	Available bool           `json:"available"`
	Fields    map[string]any `json:"fields"`
	FetchedAt *time.Time     `json:"fetched_at,omitempty"`
	StaleFor  string         `json:"stale_for,omitempty"`
	LastError string         `json:"last_error,omitempty"`
}

// toolOMVStatus constructs the omv_status Registration.
func toolOMVStatus(adapter *Adapter, auditLog *audit.Logger) tools.Registration {
	tool := mcp.NewTool(toolNameOMVStatus,
		mcp.WithDescription("Get the full raw status snapshot last fetched from the OpenMediaVault server, with fetch timestamp and staleness."),
	)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()

		result := omvStatusResult{
			Name:      adapter.Name(),
			Available: adapter.Available(),
			Fields:    adapter.Attributes(),
		}
		if snap := adapter.Snapshot(); snap != nil {
			fetched := snap.FetchedAt
			result.FetchedAt = &fetched
			result.StaleFor = snap.Age().Round(time.Second).String()
		}
		if err := adapter.LastError(); err != nil {
			result.LastError = err.Error()
		}

		auditLog.RecordTool(toolNameOMVStatus, nil, "ok", start)
		return tools.JSONResult(result), nil
	}

	return tools.Registration{Tool: tool, Handler: server.ToolHandlerFunc(handler)}
}

// toolOMVRefresh constructs the omv_refresh Registration.
func toolOMVRefresh(adapter *Adapter, auditLog *audit.Logger) tools.Registration {
	tool := mcp.NewTool(toolNameOMVRefresh,
		mcp.WithDescription("Poll the OpenMediaVault server immediately, bypassing the refresh throttle, and report whether the poll succeeded."),
	)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()

		adapter.Refresh(ctx)

		if err := adapter.LastError(); err != nil {
			auditLog.RecordTool(toolNameOMVRefresh, nil, "error: "+err.Error(), start)
			return tools.ErrorResult(err.Error()), nil
		}

		auditLog.RecordTool(toolNameOMVRefresh, nil, "ok", start)
		return tools.JSONResult(map[string]any{
			"refreshed": true,
			"fields":    adapter.Attributes(),
		}), nil
	}

	return tools.Registration{Tool: tool, Handler: server.ToolHandlerFunc(handler)}
}
