package services

import (
	"github.com/proplink/crm-client/internal/apiclient"
	"github.com/proplink/crm-client/pkg/logger"
)

// Services bundles one façade per entity over a shared client.
type Services struct {
	Leads      *LeadService
	Properties *PropertyService
	Notes      *NoteService
	Tasks      *TaskService
	Users      *UserService
	Companies  *CompanyService
}

// New wires the façades.
func New(api *apiclient.Client, log *logger.Logger) *Services {
	if log == nil {
		log = logger.NewDefault("services")
	}
	return &Services{
		Leads:      &LeadService{api: api, log: log},
		Properties: &PropertyService{api: api, log: log},
		Notes:      &NoteService{api: api, log: log},
		Tasks:      &TaskService{api: api, log: log},
		Users:      &UserService{api: api, log: log},
		Companies:  &CompanyService{api: api, log: log},
	}
}
