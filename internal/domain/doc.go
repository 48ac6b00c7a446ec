// Package domain defines the core business entities of the task management
// system as seen by the activity and notification pipeline: notifications,
// activity events, and the read models for users, teams, projects and tasks
// that recipient resolution and the scheduled jobs consume.
package domain
