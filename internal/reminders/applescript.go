package reminders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/BoweyLou/obssync/internal/model"
	"github.com/BoweyLou/obssync/internal/syncerr"
)

// jxaScript is the JavaScript-for-Automation payload shelled out to
// osascript. It receives its operation and arguments as a single JSON
// object on argv[0] (osascript -l JavaScript <script> <json-arg>) and
// writes a single JSON object to stdout. The script itself is
// intentionally small: all the interesting logic (matching, routing,
// scoring) stays in Go, and this is a thin EventKit bridge.
const jxaScript = `
function run(argv) {
  ObjC.import('stdlib');
  var req = JSON.parse(argv[0]);
  var Reminders = Application('Reminders');
  Reminders.includeStandardAdditions = true;

  function listByID(id) {
    var lists = Reminders.lists();
    for (var i = 0; i < lists.length; i++) {
      if (lists[i].id() === id) return lists[i];
    }
    return null;
  }

  function listByName(name) {
    var lists = Reminders.lists();
    for (var i = 0; i < lists.length; i++) {
      if (lists[i].name() === name) return lists[i];
    }
    return null;
  }

  function serialize(r, listID, listName) {
    return {
      id: r.id(),
      list_id: listID,
      list_name: listName,
      title: r.name(),
      completed: r.completed(),
      due: r.dueDate() ? r.dueDate().toISOString().slice(0, 10) : '',
      priority: r.priority(),
      notes: r.body() || '',
      created_at: r.creationDate() ? r.creationDate().toISOString() : '',
      modified_at: r.modificationDate() ? r.modificationDate().toISOString() : ''
    };
  }

  var out = { ok: true };
  try {
    switch (req.op) {
      case 'list_lists': {
        var lists = Reminders.lists();
        out.lists = lists.map(function (l) { return { id: l.id(), name: l.name() }; });
        break;
      }
      case 'list_tasks': {
        var tasks = [];
        req.list_ids.forEach(function (id) {
          var l = listByID(id);
          if (!l) return;
          var reminders = l.reminders();
          for (var i = 0; i < reminders.length; i++) {
            tasks.push(serialize(reminders[i], l.id(), l.name()));
          }
        });
        out.tasks = tasks;
        break;
      }
      case 'create_task': {
        var l = listByID(req.list_id);
        if (!l) throw new Error('list not found: ' + req.list_id);
        var props = { name: req.title, completed: req.completed, body: req.notes };
        if (req.due) props.dueDate = new Date(req.due);
        if (req.priority) props.priority = req.priority;
        var r = Reminders.Reminder(props);
        l.reminders.push(r);
        out.task = serialize(r, l.id(), l.name());
        break;
      }
      case 'update_task': {
        var l = listByID(req.list_id);
        if (!l) throw new Error('list not found: ' + req.list_id);
        var reminders = l.reminders();
        var target = null;
        for (var i = 0; i < reminders.length; i++) {
          if (reminders[i].id() === req.id) { target = reminders[i]; break; }
        }
        if (!target) throw new Error('reminder not found: ' + req.id);
        target.name = req.title;
        target.completed = req.completed;
        target.body = req.notes;
        if (req.due) target.dueDate = new Date(req.due);
        if (req.priority !== undefined) target.priority = req.priority;
        break;
      }
      case 'delete_task': {
        var l = listByID(req.list_id);
        if (!l) throw new Error('list not found: ' + req.list_id);
        var reminders = l.reminders();
        for (var i = 0; i < reminders.length; i++) {
          if (reminders[i].id() === req.id) { Reminders.delete(reminders[i]); break; }
        }
        break;
      }
      default:
        throw new Error('unknown op: ' + req.op);
    }
  } catch (e) {
    out.ok = false;
    out.error = String(e);
  }
  return JSON.stringify(out);
}
`

// AppleScriptGateway implements Gateway by shelling out to osascript
// and driving Reminders.app through JavaScript-for-Automation. Every
// call runs under exec.CommandContext with a bounded timeout.
type AppleScriptGateway struct {
	// Timeout bounds every individual call. Zero means 300 seconds.
	Timeout time.Duration
}

type jxaRequest struct {
	Op        string   `json:"op"`
	ListID    string   `json:"list_id,omitempty"`
	ListIDs   []string `json:"list_ids,omitempty"`
	ID        string   `json:"id,omitempty"`
	Title     string   `json:"title,omitempty"`
	Completed bool     `json:"completed,omitempty"`
	Due       string   `json:"due,omitempty"`
	Priority  int      `json:"priority,omitempty"`
	Notes     string   `json:"notes,omitempty"`
}

type jxaReminder struct {
	ID         string `json:"id"`
	ListID     string `json:"list_id"`
	ListName   string `json:"list_name"`
	Title      string `json:"title"`
	Completed  bool   `json:"completed"`
	Due        string `json:"due"`
	Priority   int    `json:"priority"`
	Notes      string `json:"notes"`
	CreatedAt  string `json:"created_at"`
	ModifiedAt string `json:"modified_at"`
}

type jxaResponse struct {
	OK    bool          `json:"ok"`
	Error string        `json:"error"`
	Lists []ListInfo    `json:"lists"`
	Tasks []jxaReminder `json:"tasks"`
	Task  jxaReminder   `json:"task"`
}

func (g *AppleScriptGateway) timeout() time.Duration {
	if g.Timeout > 0 {
		return g.Timeout
	}
	return 300 * time.Second
}

func (g *AppleScriptGateway) call(ctx context.Context, req jxaRequest) (jxaResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout())
	defer cancel()

	payload, err := json.Marshal(req)
	if err != nil {
		return jxaResponse{}, fmt.Errorf("reminders: encode request: %w", err)
	}

	cmd := exec.CommandContext(ctx, "osascript", "-l", "JavaScript", "-e", jxaScript, string(payload))
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return jxaResponse{}, fmt.Errorf("reminders: osascript timed out: %w", ctx.Err())
		}
		if strings.Contains(stderr.String(), "not authorized") || strings.Contains(stderr.String(), "-1743") {
			return jxaResponse{}, syncerr.New(syncerr.AuthorizationFailure, "reminders.call", fmt.Errorf("%s: %w", stderr.String(), err))
		}
		return jxaResponse{}, fmt.Errorf("reminders: osascript: %s: %w", stderr.String(), err)
	}

	var resp jxaResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return jxaResponse{}, fmt.Errorf("reminders: decode response: %w", err)
	}
	if !resp.OK {
		return jxaResponse{}, fmt.Errorf("reminders: %s", resp.Error)
	}
	return resp, nil
}

func (g *AppleScriptGateway) ListLists(ctx context.Context) ([]ListInfo, error) {
	resp, err := g.call(ctx, jxaRequest{Op: "list_lists"})
	if err != nil {
		return nil, err
	}
	return resp.Lists, nil
}

func (g *AppleScriptGateway) ListTasks(ctx context.Context, listIDs []string) ([]model.ReminderTask, error) {
	resp, err := g.call(ctx, jxaRequest{Op: "list_tasks", ListIDs: listIDs})
	if err != nil {
		return nil, err
	}
	tasks := make([]model.ReminderTask, 0, len(resp.Tasks))
	for _, t := range resp.Tasks {
		tasks = append(tasks, fromJXA(t))
	}
	return tasks, nil
}

func (g *AppleScriptGateway) CreateTask(ctx context.Context, t model.ReminderTask) (model.ReminderTask, error) {
	resp, err := g.call(ctx, toJXARequest("create_task", t))
	if err != nil {
		return model.ReminderTask{}, err
	}
	return fromJXA(resp.Task), nil
}

func (g *AppleScriptGateway) UpdateTask(ctx context.Context, t model.ReminderTask) error {
	_, err := g.call(ctx, toJXARequest("update_task", t))
	return err
}

func (g *AppleScriptGateway) DeleteTask(ctx context.Context, listID, id string) error {
	_, err := g.call(ctx, jxaRequest{Op: "delete_task", ListID: listID, ID: id})
	return err
}

func toJXARequest(op string, t model.ReminderTask) jxaRequest {
	req := jxaRequest{
		Op:        op,
		ListID:    t.ListID,
		ID:        t.ID,
		Title:     t.Title,
		Completed: t.Status == model.StatusDone,
		Priority:  t.Priority.RemindersValue(),
		Notes:     encodeNotes(t.Notes, t.Tags),
	}
	if t.Due != nil {
		req.Due = t.Due.String()
	}
	return req
}

func fromJXA(r jxaReminder) model.ReminderTask {
	status := model.StatusTodo
	if r.Completed {
		status = model.StatusDone
	}
	var due *model.Date
	if r.Due != "" {
		if d, err := model.ParseDate(r.Due); err == nil {
			due = &d
		}
	}
	notes, tags := decodeNotes(r.Notes)
	var created, modified model.Timestamp
	if t, err := time.Parse(time.RFC3339, r.CreatedAt); err == nil {
		created = model.NativeTimestamp(t)
	}
	if t, err := time.Parse(time.RFC3339, r.ModifiedAt); err == nil {
		modified = model.NativeTimestamp(t)
	}
	return model.ReminderTask{
		ID:         r.ID,
		ListID:     r.ListID,
		ListName:   r.ListName,
		Title:      r.Title,
		Status:     status,
		Due:        due,
		Priority:   model.PriorityFromReminders(r.Priority),
		Tags:       tags,
		Notes:      notes,
		CreatedAt:  created,
		ModifiedAt: modified,
	}
}
