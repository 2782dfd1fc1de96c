package main

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/trezcool/parokia/core"
	"github.com/trezcool/parokia/core/access"
	"github.com/trezcool/parokia/core/parish"
)

type (
	seedFile struct {
		Parishes []seedParish `yaml:"parishes"`
	}

	seedParish struct {
		Name     string       `yaml:"name"`
		Slug     string       `yaml:"slug"`
		Timezone string       `yaml:"timezone"`
		Groups   []string     `yaml:"groups"`
		Members  []seedMember `yaml:"members"`
	}

	seedMember struct {
		Name       string            `yaml:"name"`
		Email      string            `yaml:"email"`
		Password   string            `yaml:"password"`
		Role       string            `yaml:"role"`
		SuperAdmin bool              `yaml:"superadmin"`
		Groups     map[string]string `yaml:"groups"` // group name: role
	}
)

func readSeedFile(path string) (seedFile, error) {
	var sf seedFile
	b, err := os.ReadFile(path)
	if err != nil {
		return sf, errors.Wrap(err, "reading seed file")
	}
	if err = yaml.Unmarshal(b, &sf); err != nil {
		return sf, errors.Wrapf(err, "parsing %s", path)
	}
	return sf, nil
}

// seed creates the parishes of a YAML file with their groups and members.
// Parishes whose slug already exists are skipped, so seeding twice is harmless.
func (cli *commandLine) seed(path string) error {
	sf, err := readSeedFile(path)
	if err != nil {
		return err
	}
	ctx := context.Background()

	existing, err := cli.parishes.QueryAll(ctx)
	if err != nil {
		return errors.Wrap(err, "querying parishes")
	}
	slugs := make(map[string]bool, len(existing))
	for _, p := range existing {
		slugs[p.Slug] = true
	}

	for _, sp := range sf.Parishes {
		np := parish.NewParish{Name: sp.Name, Slug: sp.Slug, Timezone: sp.Timezone}
		if err = np.Validate(cli.validate); err != nil {
			return errors.Wrapf(err, "parish %q", sp.Slug)
		}
		if slugs[np.Slug] {
			cli.printf("skipping parish %s: already exists\n", np.Slug)
			continue
		}
		if err = cli.seedParish(ctx, np, sp); err != nil {
			return errors.Wrapf(err, "seeding parish %q", np.Slug)
		}
		slugs[np.Slug] = true
	}
	return nil
}

func (cli *commandLine) seedParish(ctx context.Context, np parish.NewParish, sp seedParish) error {
	p, err := cli.parishes.Create(ctx, np)
	if err != nil {
		return err
	}
	cli.printf("created parish %s\n", p.Slug)

	groups := make(map[string]string, len(sp.Groups)) // name: id
	for _, name := range sp.Groups {
		g, err := cli.parishes.CreateGroup(ctx, p.ID, parish.NewGroup{Name: core.CleanString(name)})
		if err != nil {
			return errors.Wrapf(err, "creating group %q", name)
		}
		groups[name] = g.ID
	}

	for _, m := range sp.Members {
		usr, err := cli.addUser(addUserArgs{
			name:       m.Name,
			email:      m.Email,
			password:   m.Password,
			superAdmin: m.SuperAdmin,
			parishID:   p.ID,
			role:       m.Role,
		})
		if err != nil {
			return errors.Wrapf(err, "member %q", m.Email)
		}
		for name, role := range m.Groups {
			id, ok := groups[name]
			if !ok {
				return errors.Errorf("member %q: unknown group %q", m.Email, name)
			}
			if _, err = cli.parishes.AddGroupMember(ctx, id, usr.ID, access.GroupRole(role), access.StatusActive); err != nil {
				return errors.Wrapf(err, "adding %q to group %q", m.Email, name)
			}
		}
	}
	return nil
}
