package core

import "agritrace/pkg/domain"

type (
	EntityType         = domain.EntityType
	Role               = domain.Role
	Stage              = domain.Stage
	ProductState       = domain.ProductState
	Grade              = domain.Grade
	Severity           = domain.Severity
	Base               = domain.Base
	Actor              = domain.Actor
	Product            = domain.Product
	Batch              = domain.Batch
	QualityAssessment  = domain.QualityAssessment
	TransferRecord     = domain.TransferRecord
	System             = domain.System
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	RuleViolationError = domain.RuleViolationError
	Rule               = domain.Rule
	RulesEngine        = domain.RulesEngine
	Transaction        = domain.Transaction
	TransactionView    = domain.TransactionView
	PersistentStore    = domain.PersistentStore
)

const (
	EntityActor      = domain.EntityActor
	EntityProduct    = domain.EntityProduct
	EntityBatch      = domain.EntityBatch
	EntityAssessment = domain.EntityAssessment
	EntityTransfer   = domain.EntityTransfer
	EntitySystem     = domain.EntitySystem
)

const (
	RoleNone        = domain.RoleNone
	RoleFarmer      = domain.RoleFarmer
	RoleDistributor = domain.RoleDistributor
	RoleRetailer    = domain.RoleRetailer
	RoleAdmin       = domain.RoleAdmin
)

const (
	StageFarm         = domain.StageFarm
	StageDistribution = domain.StageDistribution
	StageRetail       = domain.StageRetail
)

const (
	StatePendingPickup = domain.StatePendingPickup
	StateReceived      = domain.StateReceived
	StateVerified      = domain.StateVerified
	StateRejected      = domain.StateRejected
	StateListed        = domain.StateListed
	StateBought        = domain.StateBought
)

const (
	GradeA        = domain.GradeA
	GradeB        = domain.GradeB
	GradeC        = domain.GradeC
	GradeRejected = domain.GradeRejected
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionAppend = domain.ActionAppend
)
