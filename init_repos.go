package main

import (
	"database/sql"

	"github.com/akinalp/shopchat/repository"
)

// Repositories holds every repository instance.
type Repositories struct {
	User         repository.UserRepository
	Conversation repository.ConversationRepository
	Message      repository.MessageRepository
	Tag          repository.TagRepository
	Mention      repository.MentionRepository
}

// initRepositories builds the repositories over one shared pool.
func initRepositories(conn *sql.DB) *Repositories {
	return &Repositories{
		User:         repository.NewSQLiteUserRepo(conn),
		Conversation: repository.NewSQLiteConversationRepo(conn),
		Message:      repository.NewSQLiteMessageRepo(conn),
		Tag:          repository.NewSQLiteTagRepo(conn),
		Mention:      repository.NewSQLiteMentionRepo(conn),
	}
}
