package service

import (
	"context"
	"net/http"
	"net/url"

	"github.com/toolrelay/toolrelay/internal/result"
)

// Person is the normalized projection of a person enrichment lookup.
type Person struct {
	FullName string `json:"full_name,omitempty"`
	Email    string `json:"email,omitempty"`
	Title    string `json:"title,omitempty"`
	Company  string `json:"company,omitempty"`
	Location string `json:"location,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
	Twitter  string `json:"twitter,omitempty"`
	Bio      string `json:"bio,omitempty"`
}

// Company is the normalized projection of a company enrichment lookup.
type Company struct {
	Name        string `json:"name,omitempty"`
	Domain      string `json:"domain,omitempty"`
	Industry    string `json:"industry,omitempty"`
	Employees   int    `json:"employees,omitempty"`
	Founded     int    `json:"founded,omitempty"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
	LinkedIn    string `json:"linkedin,omitempty"`
}

// notFound reports whether err is a provider 404, which enrichment treats as
// an empty answer rather than a failure.
func notFound(err error) bool {
	return result.StatusCode(err) == http.StatusNotFound
}

// ─── Clearbit ─────────────────────────────────────────────────────────────────

// Clearbit uses the person and company "find" endpoints.
type Clearbit struct {
	person  *restClient
	company *restClient
}

func NewClearbit(key string, opts ...Option) *Clearbit {
	h := bearer(key)
	return &Clearbit{
		person:  newRESTClient("clearbit", buildOptions("https://person.clearbit.com", opts), h),
		company: newRESTClient("clearbit", buildOptions("https://company.clearbit.com", opts), h),
	}
}

type clearbitPerson struct {
	Name struct {
		FullName string `json:"fullName"`
	} `json:"name"`
	Email      string `json:"email"`
	Location   string `json:"location"`
	Bio        string `json:"bio"`
	Employment struct {
		Name  string `json:"name"`
		Title string `json:"title"`
	} `json:"employment"`
	LinkedIn struct {
		Handle string `json:"handle"`
	} `json:"linkedin"`
	Twitter struct {
		Handle string `json:"handle"`
	} `json:"twitter"`
}

type clearbitCompany struct {
	Name        string `json:"name"`
	Domain      string `json:"domain"`
	Description string `json:"description"`
	FoundedYear int    `json:"foundedYear"`
	Location    string `json:"location"`
	Category    struct {
		Industry string `json:"industry"`
	} `json:"category"`
	Metrics struct {
		Employees int `json:"employees"`
	} `json:"metrics"`
	LinkedIn struct {
		Handle string `json:"handle"`
	} `json:"linkedin"`
}

func (c *Clearbit) EnrichPerson(ctx context.Context, email string) (*Person, error) {
	var p clearbitPerson
	_, err := c.person.do(ctx, http.MethodGet, "/v2/people/find", url.Values{"email": {email}}, nil, &p)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// 202 means the lookup was queued; the body is empty
	if p.Email == "" && p.Name.FullName == "" {
		return nil, nil
	}
	out := &Person{
		FullName: p.Name.FullName,
		Email:    p.Email,
		Title:    p.Employment.Title,
		Company:  p.Employment.Name,
		Location: p.Location,
		Bio:      p.Bio,
	}
	if p.LinkedIn.Handle != "" {
		out.LinkedIn = "https://www.linkedin.com/" + p.LinkedIn.Handle
	}
	if p.Twitter.Handle != "" {
		out.Twitter = "@" + p.Twitter.Handle
	}
	return out, nil
}

func (c *Clearbit) EnrichCompany(ctx context.Context, domain string) (*Company, error) {
	var co clearbitCompany
	_, err := c.company.do(ctx, http.MethodGet, "/v2/companies/find", url.Values{"domain": {domain}}, nil, &co)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if co.Name == "" && co.Domain == "" {
		return nil, nil
	}
	out := &Company{
		Name:        co.Name,
		Domain:      co.Domain,
		Industry:    co.Category.Industry,
		Employees:   co.Metrics.Employees,
		Founded:     co.FoundedYear,
		Location:    co.Location,
		Description: co.Description,
	}
	if co.LinkedIn.Handle != "" {
		out.LinkedIn = "https://www.linkedin.com/" + co.LinkedIn.Handle
	}
	return out, nil
}

// ─── People Data Labs ─────────────────────────────────────────────────────────

// PeopleDataLabs uses the v5 enrich endpoints.
type PeopleDataLabs struct {
	rest *restClient
}

func NewPeopleDataLabs(key string, opts ...Option) *PeopleDataLabs {
	h := http.Header{}
	h.Set("X-Api-Key", key)
	return &PeopleDataLabs{rest: newRESTClient("people_data_labs", buildOptions("https://api.peopledatalabs.com", opts), h)}
}

type pdlPersonResponse struct {
	Data struct {
		FullName       string `json:"full_name"`
		WorkEmail      string `json:"work_email"`
		JobTitle       string `json:"job_title"`
		JobCompanyName string `json:"job_company_name"`
		LocationName   string `json:"location_name"`
		LinkedInURL    string `json:"linkedin_url"`
		TwitterURL     string `json:"twitter_url"`
		Summary        string `json:"summary"`
	} `json:"data"`
}

type pdlCompanyResponse struct {
	Name          string `json:"name"`
	Website       string `json:"website"`
	Industry      string `json:"industry"`
	EmployeeCount int    `json:"employee_count"`
	Founded       int    `json:"founded"`
	Summary       string `json:"summary"`
	LinkedInURL   string `json:"linkedin_url"`
	Location      struct {
		Name string `json:"name"`
	} `json:"location"`
}

func (p *PeopleDataLabs) EnrichPerson(ctx context.Context, email string) (*Person, error) {
	var resp pdlPersonResponse
	_, err := p.rest.do(ctx, http.MethodGet, "/v5/person/enrich", url.Values{"email": {email}}, nil, &resp)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	d := resp.Data
	out := &Person{
		FullName: d.FullName,
		Email:    email,
		Title:    d.JobTitle,
		Company:  d.JobCompanyName,
		Location: d.LocationName,
		LinkedIn: d.LinkedInURL,
		Twitter:  d.TwitterURL,
		Bio:      d.Summary,
	}
	if d.WorkEmail != "" {
		out.Email = d.WorkEmail
	}
	return out, nil
}

func (p *PeopleDataLabs) EnrichCompany(ctx context.Context, domain string) (*Company, error) {
	var resp pdlCompanyResponse
	_, err := p.rest.do(ctx, http.MethodGet, "/v5/company/enrich", url.Values{"website": {domain}}, nil, &resp)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &Company{
		Name:        resp.Name,
		Domain:      resp.Website,
		Industry:    resp.Industry,
		Employees:   resp.EmployeeCount,
		Founded:     resp.Founded,
		Location:    resp.Location.Name,
		Description: resp.Summary,
		LinkedIn:    resp.LinkedInURL,
	}, nil
}
