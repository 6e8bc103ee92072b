// Package interfaces documents the core abstractions used throughout the application.
//
// Controllers, services and background tasks depend on small interfaces
// declared next to their consumer. This package holds no code of its own;
// checks.go asserts that the concrete types wired in entrypoint satisfy them.
//
// # Interface Categories
//
// ## Data Access Interfaces
//
//   - BookStore: catalog reads and writes (internal/http/stores.go)
//   - LoanQueries: book record listings (internal/http/stores.go)
//   - UserStore: user administration (internal/http/stores.go)
//   - AnnouncementStore: announcements by audience (internal/http/stores.go)
//   - ReportStore: dashboard counts and issued books reports (internal/http/stores.go)
//   - OverdueSource: late loans awaiting a reminder (internal/tasks/overdue_reminders.go)
//
// ## Service Interfaces
//
//   - LoanWorkflow: the issue, renew and return workflow (internal/http/stores.go)
//   - AccountService: approval and credential changes (internal/http/stores.go)
//   - Notifier: queues an email and returns its task id (internal/auth/service.go)
//   - Mailer: delivers an email over SMTP or to the log (internal/mail/mail.go)
//
// ## Audit Interfaces
//
// Each consumer names the single audit method it calls:
//
//   - auth.Auditor, auth.LoginAuditor
//   - loans.Auditor
//   - tasks.NotificationAuditor, tasks.AuditEventCleaner
//   - http.ActivityAuditor, http.AuditReader
//
// ## Task Queue Interfaces
//
//   - TaskEnqueuer: adds a backlite task (internal/scheduler/scheduler.go)
//   - TaskStatusReader: reports task progress (internal/http/stores.go)
//
// # Adding a New Store
//
//  1. Declare the interface in internal/http/stores.go with only the methods
//     the controller calls.
//  2. Implement it in a repository under internal/database/.
//  3. Add a compile-time check to checks.go.
//  4. Wire the repository in internal/entrypoint.
package interfaces
