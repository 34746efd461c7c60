package database

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"bloodlink-backend/shared/database/models"
	"bloodlink-backend/shared/database/models/inventory"
	utils "bloodlink-backend/shared/utils/auth"
)

// SeedDatabase seeds the database with development data: a small organization
// tree, staff users per organization, and ready-to-use stock. Idempotent, keyed
// on names, emails and unit codes.
func SeedDatabase() error {
	log.Println("🌱 Checking database seed data...")

	orgsCreated, err := seedOrganizations()
	if err != nil {
		return err
	}

	usersCreated, err := seedUsers()
	if err != nil {
		return err
	}

	stockCreated, err := seedStock()
	if err != nil {
		return err
	}

	if orgsCreated > 0 || usersCreated > 0 || stockCreated > 0 {
		log.Printf("✅ Database seeding completed (%d organizations, %d users, %d stock rows created)", orgsCreated, usersCreated, stockCreated)
	} else {
		log.Println("✅ Database seed data is up to date")
	}

	return nil
}

// seedOrganizations creates the development organization tree: one hospital
// network with two branches, one blood bank chain with one branch, and one
// standalone hospital.
func seedOrganizations() (int, error) {
	type orgSeed struct {
		Name       string
		Type       string
		ParentName string
		Address    string
		Phone      string
	}

	seeds := []orgSeed{
		{Name: "Meridian Hospital Network", Type: models.OrgTypeHospitalNetwork, Address: "1 Meridian Plaza", Phone: "+1-555-0100"},
		{Name: "Meridian General", Type: models.OrgTypeBranch, ParentName: "Meridian Hospital Network", Address: "12 River Road", Phone: "+1-555-0101"},
		{Name: "Meridian East", Type: models.OrgTypeBranch, ParentName: "Meridian Hospital Network", Address: "48 East Avenue", Phone: "+1-555-0102"},
		{Name: "RedCell Blood Bank Chain", Type: models.OrgTypeBloodBankChain, Address: "200 Donor Street", Phone: "+1-555-0200"},
		{Name: "RedCell Central", Type: models.OrgTypeBranch, ParentName: "RedCell Blood Bank Chain", Address: "201 Donor Street", Phone: "+1-555-0201"},
		{Name: "St. Aurelia Hospital", Type: models.OrgTypeStandalone, Address: "7 Chapel Hill", Phone: "+1-555-0300"},
	}

	created := 0
	for _, seed := range seeds {
		var existing models.Organization
		if DB.Where("name = ?", seed.Name).First(&existing).Error == nil {
			continue
		}

		org := models.Organization{
			Name:     seed.Name,
			Type:     seed.Type,
			Address:  seed.Address,
			Phone:    seed.Phone,
			IsActive: true,
		}
		if seed.ParentName != "" {
			var parent models.Organization
			if err := DB.Where("name = ?", seed.ParentName).First(&parent).Error; err != nil {
				return created, fmt.Errorf("parent organization %q not found: %w", seed.ParentName, err)
			}
			org.ParentID = &parent.ID
		}

		if err := DB.Create(&org).Error; err != nil {
			return created, err
		}
		created++
	}

	return created, nil
}

// seedUsers creates one admin, one inventory clerk and one dispatcher per
// seeded organization.
func seedUsers() (int, error) {
	var orgs []models.Organization
	if err := DB.Find(&orgs).Error; err != nil {
		return 0, err
	}

	roles := []struct {
		Role      string
		Prefix    string
		FirstName string
	}{
		{Role: models.RoleAdmin, Prefix: "admin", FirstName: "Admin"},
		{Role: models.RoleInventory, Prefix: "clerk", FirstName: "Clerk"},
		{Role: models.RoleDispatcher, Prefix: "dispatch", FirstName: "Dispatcher"},
	}

	created := 0
	for i, org := range orgs {
		for _, r := range roles {
			email := fmt.Sprintf("%s%d@bloodlink.example", r.Prefix, i+1)

			var existing models.User
			if DB.Where("email = ?", email).First(&existing).Error == nil {
				continue
			}

			hashed, err := utils.HashPassword("bloodlink123")
			if err != nil {
				return created, err
			}

			user := models.User{
				Email:          email,
				Password:       hashed,
				FirstName:      r.FirstName,
				LastName:       org.Name,
				Role:           r.Role,
				OrganizationID: org.ID,
			}
			if err := DB.Create(&user).Error; err != nil {
				return created, err
			}
			created++
		}
	}

	return created, nil
}

// seedStock creates collected units and ready-to-use components for every
// non-parent organization so fulfillment can be exercised immediately.
func seedStock() (int, error) {
	var orgs []models.Organization
	if err := DB.Where("type IN ?", []string{models.OrgTypeBranch, models.OrgTypeStandalone}).
		Find(&orgs).Error; err != nil {
		return 0, err
	}

	componentPlans := []struct {
		Type       string
		BloodGroup string
		VolumeML   int
		ExpiryDays int
	}{
		{Type: inventory.ComponentPRC, BloodGroup: "O+", VolumeML: 280, ExpiryDays: 35},
		{Type: inventory.ComponentPRC, BloodGroup: "A+", VolumeML: 270, ExpiryDays: 20},
		{Type: inventory.ComponentFFP, BloodGroup: "O-", VolumeML: 220, ExpiryDays: 300},
		{Type: inventory.ComponentPlatelets, BloodGroup: "B+", VolumeML: 50, ExpiryDays: 5},
	}

	now := time.Now().UTC()
	created := 0
	for i, org := range orgs {
		for j, plan := range componentPlans {
			unitCode := fmt.Sprintf("SEED-%02d-%02d", i+1, j+1)

			var existing inventory.BloodUnit
			if DB.Where("unit_code = ?", unitCode).First(&existing).Error == nil {
				continue
			}

			group := plan.BloodGroup
			unit := inventory.BloodUnit{
				UnitCode:       unitCode,
				OrganizationID: org.ID,
				BloodGroup:     &group,
				VolumeML:       450,
				Status:         inventory.StatusProcessing,
				Location:       org.Name + " collection bay",
				CollectedAt:    now.Add(-48 * time.Hour),
			}
			if err := DB.Create(&unit).Error; err != nil {
				return created, err
			}
			created++

			component := inventory.Component{
				BloodUnitID:     unit.ID,
				OrganizationID:  org.ID,
				Type:            plan.Type,
				BloodGroup:      plan.BloodGroup,
				VolumeML:        plan.VolumeML,
				ExpiryDate:      now.Add(time.Duration(plan.ExpiryDays) * 24 * time.Hour),
				Status:          inventory.StatusReadyToUse,
				StorageLocation: org.Name + " fridge 1",
			}
			if err := DB.Create(&component).Error; err != nil {
				return created, err
			}
			created++
		}
	}

	return created, nil
}

// CreateSuperAdmin ensures a platform admin exists on the first seeded
// organization. Used by the seed command for local development.
func CreateSuperAdmin(email, password, firstName, lastName string) error {
	var existing models.User
	if DB.Where("email = ?", email).First(&existing).Error == nil {
		log.Printf("✅ Super admin already exists: %s", email)
		return nil
	}

	var org models.Organization
	if err := DB.Order("created_at asc").First(&org).Error; err != nil {
		return fmt.Errorf("no organization to attach super admin to: %w", err)
	}

	hashed, err := utils.HashPassword(password)
	if err != nil {
		return err
	}

	admin := models.User{
		ID:             uuid.New(),
		Email:          email,
		Password:       hashed,
		FirstName:      firstName,
		LastName:       lastName,
		Role:           models.RoleAdmin,
		OrganizationID: org.ID,
	}
	if err := DB.Create(&admin).Error; err != nil {
		return err
	}

	log.Printf("✅ Super admin created: %s", email)
	return nil
}
