package api_test

import (
	"net/http"
	"testing"

	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/schedule"
	"github.com/Pushparaj13811/smart-factory-scheduler-sub000/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type conflictReport struct {
	Count     int                 `json:"count"`
	Conflicts []schedule.Conflict `json:"conflicts"`
}

// TestRoutes_OptimizeFlow 测试检测冲突、生成方案、应用方案的完整流程
func TestRoutes_OptimizeFlow(t *testing.T) {
	router := setupRouter(t)
	seed(t, router)
	a := createTask(t, router, "Drill housing", "M1", "W1", 9, 11, "high")
	b := createTask(t, router, "Polish flange", "M1", "W2", 10, 12, "low")

	w := doRequest(t, router, http.MethodGet, "/api/v1/schedule/conflicts", nil, "", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var report conflictReport
	decode(t, w, &report)
	require.Equal(t, 1, report.Count)
	assert.Equal(t, schedule.SeverityHigh, report.Conflicts[0].Severity)
	assert.True(t, report.Conflicts[0].Involves(a))
	assert.True(t, report.Conflicts[0].Involves(b))

	w = doRequest(t, router, http.MethodPost, "/api/v1/schedule/optimize", nil, "", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var proposal service.Proposal
	decode(t, w, &proposal)
	require.NotEmpty(t, proposal.ID)
	require.Len(t, proposal.Result.Changes, 1)
	assert.Equal(t, b, proposal.Result.Changes[0].TaskID)

	w = doRequest(t, router, http.MethodGet, "/api/v1/schedule/proposals/"+proposal.ID, nil, "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, router, http.MethodPost, "/api/v1/schedule/proposals/"+proposal.ID+"/apply", nil, "", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result service.ApplyResult
	decode(t, w, &result)
	assert.Equal(t, 1, result.Applied)
	require.Len(t, result.Results, 1)
	assert.Equal(t, service.ChangeApplied, result.Results[0].Outcome)

	w = doRequest(t, router, http.MethodGet, "/api/v1/schedule/conflicts", nil, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &report)
	assert.Equal(t, 0, report.Count)

	w = doRequest(t, router, http.MethodGet, "/api/v1/schedule/proposals/"+proposal.ID, nil, "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, router, http.MethodGet, taskPath(b, "/history"), nil, "", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

// TestRoutes_DetectRequestBody 测试对请求体中的任务检测冲突
func TestRoutes_DetectRequestBody(t *testing.T) {
	router := setupRouter(t)

	body := map[string]interface{}{
		"tasks": []map[string]interface{}{
			{"id": "x", "title": "x", "machine_id": "M1", "status": "scheduled", "priority": "medium",
				"window": map[string]string{"start": at(9), "end": at(11)}},
			{"id": "y", "title": "y", "machine_id": "M1", "status": "scheduled", "priority": "medium",
				"window": map[string]string{"start": at(10), "end": at(12)}},
		},
	}
	w := doRequest(t, router, http.MethodPost, "/api/v1/schedule/conflicts", body, "", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var report conflictReport
	decode(t, w, &report)
	require.Equal(t, 1, report.Count)
	assert.Equal(t, schedule.SeverityMedium, report.Conflicts[0].Severity)
}

// TestRoutes_ReassignUnavailable 测试改派到被占用的机器返回 409 和替代建议
func TestRoutes_ReassignUnavailable(t *testing.T) {
	router := setupRouter(t)
	seed(t, router)
	id := createTask(t, router, "Drill housing", "M1", "", 9, 10, "medium")
	createTask(t, router, "Long run", "M2", "", 13, 16, "high")

	w := doRequest(t, router, http.MethodPost, taskPath(id, "/reassign"), map[string]interface{}{
		"machine_id": "M2",
		"start":      at(14),
		"end":        at(15),
	}, "", "")
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	var data struct {
		Resource    schedule.Resource `json:"resource"`
		Suggestions []string          `json:"suggestions"`
	}
	decode(t, w, &data)
	assert.Equal(t, "M2", data.Resource.ID)
	assert.NotEmpty(t, data.Suggestions)

	w = doRequest(t, router, http.MethodPost, taskPath(id, "/reassign"), map[string]interface{}{
		"machine_id": "M2",
		"start":      at(14),
		"end":        at(15),
		"force":      true,
		"reason":     "rush order",
	}, "", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var task schedule.Task
	decode(t, w, &task)
	assert.Equal(t, "M2", task.MachineID)
	assert.Equal(t, int64(2), task.Version)
}

// TestRoutes_RoleFiltering 测试操作工只能看到自己的任务且不能调度
func TestRoutes_RoleFiltering(t *testing.T) {
	router := setupRouter(t)
	seed(t, router)
	mine := createTask(t, router, "Drill housing", "M1", "W1", 9, 11, "high")
	other := createTask(t, router, "Polish flange", "M1", "W2", 10, 12, "low")

	w := doRequest(t, router, http.MethodGet, "/api/v1/tasks", nil, "W1", schedule.RoleOperator)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var tasks []schedule.Task
	decode(t, w, &tasks)
	require.Len(t, tasks, 1)
	assert.Equal(t, mine, tasks[0].ID)

	w = doRequest(t, router, http.MethodGet, taskPath(other, ""), nil, "W1", schedule.RoleOperator)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, router, http.MethodPost, "/api/v1/schedule/optimize", nil, "W1", schedule.RoleOperator)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(t, router, http.MethodPost, "/api/v1/machines", map[string]interface{}{
		"name": "CNC 3", "type": "cnc", "capacity": 5,
	}, "W1", schedule.RoleOperator)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(t, router, http.MethodGet, "/api/v1/tasks", nil, "x", schedule.Role("janitor"))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

// TestRoutes_Validation 测试非法输入返回 400
func TestRoutes_Validation(t *testing.T) {
	router := setupRouter(t)
	seed(t, router)

	w := doRequest(t, router, http.MethodPost, "/api/v1/tasks", map[string]interface{}{
		"title": "backwards", "start": at(11), "end": at(10),
	}, "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, router, http.MethodPost, "/api/v1/tasks", map[string]interface{}{"title": "no window"}, "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, router, http.MethodGet, "/api/v1/tasks/bad%20id", nil, "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, router, http.MethodGet, "/api/v1/schedule/conflicts?from=yesterday", nil, "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, router, http.MethodGet, "/api/v1/machines/M1/availability?from="+at(12)+"&to="+at(10), nil, "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, router, http.MethodGet, "/api/v1/tasks/unknown", nil, "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestRoutes_MachineAvailability 测试机器忙闲查询
func TestRoutes_MachineAvailability(t *testing.T) {
	router := setupRouter(t)
	seed(t, router)
	createTask(t, router, "Drill housing", "M1", "", 9, 11, "high")

	w := doRequest(t, router, http.MethodGet, "/api/v1/machines/M1/availability?from="+at(8)+"&to="+at(12), nil, "", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var avail schedule.Availability
	decode(t, w, &avail)
	assert.True(t, avail.Schedulable)
	require.Len(t, avail.Busy, 1)
	assert.Len(t, avail.Free, 2)
}

// TestRoutes_Maintenance 测试维护日历路由不会被 /:id 吞掉
func TestRoutes_Maintenance(t *testing.T) {
	router := setupRouter(t)
	seed(t, router)

	w := doRequest(t, router, http.MethodPost, "/api/v1/maintenance", map[string]interface{}{
		"machine_id":     "M1",
		"title":          "Spindle check",
		"type":           "inspection",
		"scheduled_date": at(24),
	}, "", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doRequest(t, router, http.MethodGet, "/api/v1/maintenance/calendar?from="+at(0)+"&to="+at(72), nil, "", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var records []service.MaintenanceRecord
	decode(t, w, &records)
	require.Len(t, records, 1)
	assert.Equal(t, schedule.MaintenanceScheduled, records[0].Status)

	w = doRequest(t, router, http.MethodGet, "/api/v1/machines/M1/maintenance", nil, "", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

// TestRoutes_HealthAndNoRoute 测试健康检查和未知路由
func TestRoutes_HealthAndNoRoute(t *testing.T) {
	router := setupRouter(t)

	w := doRequest(t, router, http.MethodGet, "/health", nil, "", "")
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doRequest(t, router, http.MethodGet, "/api/v1/nope", nil, "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, http.StatusNotFound, decode(t, w, nil).Code)

	w = doRequest(t, router, http.MethodGet, "/api/v1/schedule/stats", nil, "", "")
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

// TestRoutes_InactiveWorker 测试创建停用的工人后不能改派给他
func TestRoutes_InactiveWorker(t *testing.T) {
	router := setupRouter(t)
	seed(t, router)
	id := createTask(t, router, "Drill housing", "M1", "W1", 9, 10, "medium")

	w := doRequest(t, router, http.MethodPost, "/api/v1/workers", map[string]interface{}{
		"id": "W9", "name": "Worker W9", "skills": []string{"cnc"}, "active": false,
	}, "", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doRequest(t, router, http.MethodGet, "/api/v1/workers/W9", nil, "", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var worker schedule.Assignee
	decode(t, w, &worker)
	assert.False(t, worker.Active)

	w = doRequest(t, router, http.MethodPost, taskPath(id, "/reassign"), map[string]interface{}{
		"assignee_id": "W9",
	}, "", "")
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())
}
