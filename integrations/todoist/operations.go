package todoist

import (
	"context"

	"github.com/petal-labs/petaltools/tool"
)

var dueInputs = map[string]tool.FieldSpec{
	"due_string":   {Type: tool.TypeString, Description: `Human-readable due date, e.g. "tomorrow at 12:00" or "every day"`},
	"due_date":     {Type: tool.TypeString, Description: "Due date in YYYY-MM-DD format"},
	"due_datetime": {Type: tool.TypeString, Description: "Due date and time in RFC3339 format"},
	"due_lang":     {Type: tool.TypeString, Description: `Language of due_string, e.g. "en"`},
}

var taskIDInput = tool.FieldSpec{Type: tool.TypeString, Required: true, Description: "Task ID or task URL"}

func withDue(inputs map[string]tool.FieldSpec) map[string]tool.FieldSpec {
	for name, spec := range dueInputs {
		inputs[name] = spec
	}
	return inputs
}

// Operations returns the fixed set of Todoist operations bound to this integration.
func (i *Integration) Operations() []tool.Operation {
	ops := []tool.Operation{
		{
			Name:        "todoist_create_task",
			Description: "Create a new Todoist task.",
			Inputs: withDue(map[string]tool.FieldSpec{
				"content":     {Type: tool.TypeString, Required: true, Description: "Task content"},
				"description": {Type: tool.TypeString},
				"project_id":  {Type: tool.TypeString, Description: "Project ID; see todoist_get_projects"},
				"section_id":  {Type: tool.TypeString},
				"parent_id":   {Type: tool.TypeString, Description: "Parent task ID for sub-tasks"},
				"order":       {Type: tool.TypeInteger},
				"labels":      {Type: tool.TypeArray, Items: &tool.FieldSpec{Type: tool.TypeString}, Description: "Label names"},
				"priority":    {Type: tool.TypeInteger, Description: "1 (normal) to 4 (urgent)"},
				"assignee_id": {Type: tool.TypeString, Description: "Assignee in a shared project"},
			}),
			Handler: i.createTask,
		},
		{
			Name:        "todoist_get_tasks",
			Description: "List active Todoist tasks, optionally filtered.",
			Inputs: map[string]tool.FieldSpec{
				"project_id":   {Type: tool.TypeString},
				"section_id":   {Type: tool.TypeString},
				"label":        {Type: tool.TypeString},
				"filter_query": {Type: tool.TypeString, Description: `Todoist filter, e.g. "today" or "p1 & @home"`},
				"lang":         {Type: tool.TypeString, Description: "Language of filter_query"},
				"ids":          {Type: tool.TypeArray, Items: &tool.FieldSpec{Type: tool.TypeString}, Description: "Specific task IDs"},
			},
			Handler: i.getTasks,
		},
		{
			Name:        "todoist_get_task",
			Description: "Get a Todoist task by ID.",
			Inputs:      map[string]tool.FieldSpec{"task_id": taskIDInput},
			Handler:     i.getTask,
		},
		{
			Name:        "todoist_update_task",
			Description: "Update an existing Todoist task.",
			Inputs: withDue(map[string]tool.FieldSpec{
				"task_id":     taskIDInput,
				"content":     {Type: tool.TypeString},
				"description": {Type: tool.TypeString},
				"labels":      {Type: tool.TypeArray, Items: &tool.FieldSpec{Type: tool.TypeString}},
				"priority":    {Type: tool.TypeInteger, Description: "1 (normal) to 4 (urgent)"},
				"assignee_id": {Type: tool.TypeString},
			}),
			Handler: i.updateTask,
		},
		{
			Name:        "todoist_complete_task",
			Description: "Mark a Todoist task as completed.",
			Inputs:      map[string]tool.FieldSpec{"task_id": taskIDInput},
			Handler:     i.completeTask,
		},
		{
			Name:        "todoist_reopen_task",
			Description: "Reopen a completed Todoist task.",
			Inputs:      map[string]tool.FieldSpec{"task_id": taskIDInput},
			Handler:     i.reopenTask,
		},
		{
			Name:        "todoist_delete_task",
			Description: "Delete a Todoist task.",
			Inputs:      map[string]tool.FieldSpec{"task_id": taskIDInput},
			Handler:     i.deleteTask,
		},
		{
			Name:        "todoist_get_projects",
			Description: "List all Todoist projects.",
			Handler:     i.getProjects,
		},
	}
	for idx := range ops {
		ops[idx].Integration = Name
		ops[idx].Gate = i.gate
	}
	return ops
}

// taskFields copies the optional task attributes present in args.
func taskFields(args tool.Args, stringNames ...string) (map[string]any, error) {
	fields := map[string]any{}
	for _, name := range stringNames {
		value, ok, err := args.OptionalString(name)
		if err != nil {
			return nil, err
		}
		if ok {
			fields[name] = value
		}
	}

	if order, ok, err := args.OptionalInt("order"); err != nil {
		return nil, err
	} else if ok {
		fields["order"] = order
	}

	if priority, ok, err := args.OptionalInt("priority"); err != nil {
		return nil, err
	} else if ok {
		if priority < 1 || priority > 4 {
			return nil, tool.InputError("priority must be between 1 and 4, got %d", priority)
		}
		fields["priority"] = priority
	}

	if _, present := args["labels"]; present {
		labels, err := args.StringSlice("labels")
		if err != nil {
			return nil, err
		}
		if labels == nil {
			labels = []string{}
		}
		fields["labels"] = labels
	}
	return fields, nil
}

func taskID(args tool.Args) (string, error) {
	raw, err := args.String("task_id")
	if err != nil {
		return "", err
	}
	id := tool.NormalizeID(raw)
	if id == "" {
		return "", tool.InputError("parameter task_id does not contain an ID")
	}
	return id, nil
}

var dueNames = []string{"due_string", "due_date", "due_datetime", "due_lang", "assignee_id"}

func (i *Integration) createTask(ctx context.Context, args tool.Args) (map[string]any, error) {
	client, err := i.client.Get()
	if err != nil {
		return nil, err
	}
	content, err := args.String("content")
	if err != nil {
		return nil, err
	}
	names := append([]string{"description", "project_id", "section_id", "parent_id"}, dueNames...)
	fields, err := taskFields(args, names...)
	if err != nil {
		return nil, err
	}
	fields["content"] = content

	task, err := client.AddTask(ctx, fields)
	if err != nil {
		return nil, err
	}
	return map[string]any{"task": task.Map()}, nil
}

func (i *Integration) getTasks(ctx context.Context, args tool.Args) (map[string]any, error) {
	client, err := i.client.Get()
	if err != nil {
		return nil, err
	}

	var filter TaskFilter
	for name, dst := range map[string]*string{
		"project_id":   &filter.ProjectID,
		"section_id":   &filter.SectionID,
		"label":        &filter.Label,
		"filter_query": &filter.Filter,
		"lang":         &filter.Lang,
	} {
		value, _, err := args.OptionalString(name)
		if err != nil {
			return nil, err
		}
		*dst = value
	}
	ids, err := args.StringSlice("ids")
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if normalized := tool.NormalizeID(id); normalized != "" {
			filter.IDs = append(filter.IDs, normalized)
		}
	}

	tasks, err := client.GetTasks(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, task.Map())
	}
	return map[string]any{"tasks": out, "count": len(out)}, nil
}

func (i *Integration) getTask(ctx context.Context, args tool.Args) (map[string]any, error) {
	client, err := i.client.Get()
	if err != nil {
		return nil, err
	}
	id, err := taskID(args)
	if err != nil {
		return nil, err
	}
	task, err := client.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	return map[string]any{"task": task.Map()}, nil
}

func (i *Integration) updateTask(ctx context.Context, args tool.Args) (map[string]any, error) {
	client, err := i.client.Get()
	if err != nil {
		return nil, err
	}
	id, err := taskID(args)
	if err != nil {
		return nil, err
	}
	names := append([]string{"content", "description"}, dueNames...)
	fields, err := taskFields(args, names...)
	if err != nil {
		return nil, err
	}
	task, err := client.UpdateTask(ctx, id, fields)
	if err != nil {
		return nil, err
	}
	return map[string]any{"task": task.Map()}, nil
}

func (i *Integration) completeTask(ctx context.Context, args tool.Args) (map[string]any, error) {
	client, err := i.client.Get()
	if err != nil {
		return nil, err
	}
	id, err := taskID(args)
	if err != nil {
		return nil, err
	}
	if err := client.CloseTask(ctx, id); err != nil {
		return nil, err
	}
	return map[string]any{"task_id": id, "completed": true}, nil
}

func (i *Integration) reopenTask(ctx context.Context, args tool.Args) (map[string]any, error) {
	client, err := i.client.Get()
	if err != nil {
		return nil, err
	}
	id, err := taskID(args)
	if err != nil {
		return nil, err
	}
	if err := client.ReopenTask(ctx, id); err != nil {
		return nil, err
	}
	return map[string]any{"task_id": id, "completed": false}, nil
}

func (i *Integration) deleteTask(ctx context.Context, args tool.Args) (map[string]any, error) {
	client, err := i.client.Get()
	if err != nil {
		return nil, err
	}
	id, err := taskID(args)
	if err != nil {
		return nil, err
	}
	if err := client.DeleteTask(ctx, id); err != nil {
		return nil, err
	}
	return map[string]any{"task_id": id, "deleted": true}, nil
}

func (i *Integration) getProjects(ctx context.Context, _ tool.Args) (map[string]any, error) {
	client, err := i.client.Get()
	if err != nil {
		return nil, err
	}
	projects, err := client.GetProjects(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(projects))
	for _, project := range projects {
		out = append(out, project.Map())
	}
	return map[string]any{"projects": out, "count": len(out)}, nil
}
