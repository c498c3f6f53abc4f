package actions

import (
	"net/smtp"
	"os/exec"

	"github.com/cbr9/organizer/internal/plugin"
	"github.com/cbr9/organizer/internal/template"
	"github.com/cbr9/organizer/internal/xerrors"
)

func init() {
	plugin.RegisterAction("email", buildEmail)
	plugin.RegisterAction("script", buildScript)
}

// emailAction sends a notification through an SMTP relay configured via
// the rule's connections. Neither pack repo nor the teacher carries an
// SMTP client; stdlib net/smtp is used directly since no ecosystem
// mailer is already wired elsewhere in this stack. Not reversible: its
// Receipt never carries an undo operation, so it is never journaled.
type emailAction struct {
	To      *template.Template
	Subject *template.Template
	Body    *template.Template
}

func buildEmail(opts plugin.Options, c *template.Compiler) (plugin.Action, error) {
	to, err := compileTemplate(opts, c, "to")
	if err != nil {
		return nil, err
	}
	subject, err := compileTemplate(opts, c, "subject")
	if err != nil {
		return nil, err
	}
	body, err := compileTemplate(opts, c, "body")
	if err != nil {
		return nil, err
	}
	return emailAction{To: to, Subject: subject, Body: body}, nil
}

func (emailAction) Tag() string         { return "email" }
func (emailAction) Model() plugin.Model { return plugin.Single }

func (a emailAction) Run(ctx *plugin.Context) (*plugin.Receipt, error) {
	to, err := a.To.Render(ctx.EvalContext)
	if err != nil {
		return nil, err
	}
	subject, err := a.Subject.Render(ctx.EvalContext)
	if err != nil {
		return nil, err
	}
	body, err := a.Body.Render(ctx.EvalContext)
	if err != nil {
		return nil, err
	}

	host, _ := ctx.ConfigValue("smtp_host")
	from, _ := ctx.ConfigValue("smtp_from")
	if host == "" {
		return nil, xerrors.Configf("email: smtp_host is not configured", nil)
	}

	msg := []byte("From: " + from + "\r\nTo: " + to + "\r\nSubject: " + subject + "\r\n\r\n" + body + "\r\n")
	if err := smtp.SendMail(host, nil, from, []string{to}, msg); err != nil {
		return nil, xerrors.Interactionf("email: send failed", err)
	}
	return passthrough(ctx), nil
}

// scriptAction runs an external command with the resource's path as its
// sole argument. An arbitrary external process's effects cannot be
// generically reversed, so its Receipt never carries an undo operation.
type scriptAction struct {
	Command *template.Template
}

func buildScript(opts plugin.Options, c *template.Compiler) (plugin.Action, error) {
	tpl, err := compileTemplate(opts, c, "command")
	if err != nil {
		return nil, err
	}
	return scriptAction{Command: tpl}, nil
}

func (scriptAction) Tag() string         { return "script" }
func (scriptAction) Model() plugin.Model { return plugin.Single }

func (a scriptAction) Run(ctx *plugin.Context) (*plugin.Receipt, error) {
	command, err := a.Command.Render(ctx.EvalContext)
	if err != nil {
		return nil, err
	}
	cmd := exec.CommandContext(ctx.EvalContext, command, ctx.Resource.Path())
	if err := cmd.Run(); err != nil {
		return nil, xerrors.Iof(ctx.Resource.Path(), command, "script: command failed", err)
	}
	return passthrough(ctx), nil
}
